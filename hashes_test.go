// Copyright (c) 2017 Aidos Developer

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package xmss

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"golang.org/x/crypto/sha3"
)

func generateSeed() []byte {
	seed := make([]byte, 32)
	if _, err := rand.Read(seed); err != nil {
		panic(err)
	}
	return seed
}

func fixed(typ byte) []byte {
	f := make([]byte, 32)
	f[31] = typ
	return f
}

func TestHashes(t *testing.T) {
	key := generateSeed()
	m := generateSeed()
	m2 := generateSeed()
	out := make([]byte, 32)

	s := sha256.New()
	s.Write(fixed(hashTypeF))
	s.Write(key)
	s.Write(m)
	if sha2F(key, m, out); !bytes.Equal(out, s.Sum(nil)) {
		t.Error("incorrect sha2F")
	}

	s.Reset()
	s.Write(fixed(hashTypeH))
	s.Write(key)
	s.Write(m)
	s.Write(m2)
	if sha2H(key, m, m2, out); !bytes.Equal(out, s.Sum(nil)) {
		t.Error("incorrect sha2H")
	}

	p, err := DefaultParams(SHA2_256, 4)
	if err != nil {
		t.Fatal(err)
	}
	s.Reset()
	s.Write(fixed(hashTypeMsg))
	s.Write(key)
	s.Write(m)
	if !bytes.Equal(p.hashMsg(key, m), s.Sum(nil)) {
		t.Error("incorrect hashMsg")
	}

	f := p.newPRF(key)
	for _, in := range [][]byte{m, m2} {
		s.Reset()
		s.Write(fixed(hashTypePRF))
		s.Write(key)
		s.Write(in)
		if f.sum(in, out); !bytes.Equal(out, s.Sum(nil)) {
			t.Error("incorrect prf")
		}
	}

	mm := make([]byte, 32)
	mm[31] = 123
	s.Reset()
	s.Write(fixed(hashTypePRF))
	s.Write(key)
	s.Write(mm)
	if f.sumInt(123, out); !bytes.Equal(out, s.Sum(nil)) {
		t.Error("incorrect sumInt")
	}
}

func TestShakePRF(t *testing.T) {
	for _, hash := range []HashFunction{SHAKE_128, SHAKE_256} {
		for _, n := range []uint32{32, 64} {
			p, err := NewParams(hash, n, 4, 16, 2)
			if err != nil {
				t.Fatal(err)
			}
			key := make([]byte, n)
			copy(key, generateSeed())
			f := p.newPRF(key)
			for _, m := range [][]byte{generateSeed(), generateSeed()} {
				var h sha3.ShakeHash
				if hash == SHAKE_128 {
					h = sha3.NewShake128()
				} else {
					h = sha3.NewShake256()
				}
				prefix := make([]byte, n)
				prefix[n-1] = hashTypePRF
				h.Write(prefix)
				h.Write(key)
				h.Write(m)
				want := make([]byte, n)
				h.Read(want)

				out := make([]byte, n)
				f.sum(m, out)
				if !bytes.Equal(out, want) {
					t.Errorf("%s n=%d: incorrect prf", hash, n)
				}
				core := make([]byte, n)
				p.coreHash(core, hashTypePRF, key, m)
				if !bytes.Equal(core, want) {
					t.Errorf("%s n=%d: incorrect coreHash", hash, n)
				}
			}
		}
	}
}

//the SHA2 fast paths of F and H must agree with coreHash.
func TestRandHashPaths(t *testing.T) {
	p, err := DefaultParams(SHA2_256, 4)
	if err != nil {
		t.Fatal(err)
	}
	pub := p.newPRF(generateSeed())
	var a address
	a.setType(addrTypeHashTree)
	a.setTreeHeight(3)
	a.setTreeIndex(5)
	left, right := generateSeed(), generateSeed()

	key := make([]byte, 32)
	bm := make([]byte, 64)
	a.setKeyAndMask(0)
	pub.sum(a.bytes(), key)
	a.setKeyAndMask(1)
	pub.sum(a.bytes(), bm[:32])
	a.setKeyAndMask(2)
	pub.sum(a.bytes(), bm[32:])
	for i := 0; i < 32; i++ {
		bm[i] ^= left[i]
		bm[32+i] ^= right[i]
	}
	want := make([]byte, 32)
	p.coreHash(want, hashTypeH, key, bm)

	out := make([]byte, 32)
	p.randHash(out, left, right, pub, &a)
	if !bytes.Equal(out, want) {
		t.Error("randHash differs from coreHash")
	}
	//aliasing the output with an input
	p.randHash(left, left, right, pub, &a)
	if !bytes.Equal(left, want) {
		t.Error("randHash with aliased output is incorrect")
	}

	in := generateSeed()
	a.setType(addrTypeOTS)
	a.setKeyAndMask(0)
	pub.sum(a.bytes(), key)
	a.setKeyAndMask(1)
	pub.sum(a.bytes(), bm[:32])
	for i := 0; i < 32; i++ {
		bm[i] ^= in[i]
	}
	p.coreHash(want, hashTypeF, key, bm[:32])
	p.hashF(out, in, pub, &a)
	if !bytes.Equal(out, want) {
		t.Error("hashF differs from coreHash")
	}
}

func TestToByte(t *testing.T) {
	out := []byte{9, 9, 9, 9, 9, 9}
	toByte(out, 0x01020304)
	if !bytes.Equal(out, []byte{0, 0, 1, 2, 3, 4}) {
		t.Error("incorrect toByte", out)
	}
}

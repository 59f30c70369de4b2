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
	"crypto/subtle"
	"encoding/binary"

	sha256 "github.com/AidosKuneen/sha256-simd"
	"golang.org/x/crypto/sha3"
)

const (
	hashTypeF   = 0
	hashTypeH   = 1
	hashTypeMsg = 2
	hashTypePRF = 3
)

var zero64 = make([]byte, 64)

//toByte writes x as a big endian number filling all of out.
func toByte(out []byte, x uint32) {
	copy(out, zero64)
	if len(out) < 4 {
		return
	}
	binary.BigEndian.PutUint32(out[len(out)-4:], x)
}

func (p *Params) newShake() sha3.ShakeHash {
	if p.hash == SHAKE_256 {
		return sha3.NewShake256()
	}
	return sha3.NewShake128()
}

//coreHash computes Hash(toByte(typ, n) || key || in...) into out[:n].
func (p *Params) coreHash(out []byte, typ uint32, key []byte, in ...[]byte) {
	prefix := make([]byte, p.n)
	toByte(prefix, typ)
	if p.hash == SHA2_256 {
		h := sha256.New()
		h.Write(prefix)
		h.Write(key)
		for _, b := range in {
			h.Write(b)
		}
		copy(out[:p.n], h.Sum(nil))
		return
	}
	h := p.newShake()
	h.Write(prefix)
	h.Write(key)
	for _, b := range in {
		h.Write(b)
	}
	h.Read(out[:p.n])
}

//hashMsg is H_msg. key is R || ROOT || toByte(idx, n).
func (p *Params) hashMsg(key, m []byte) []byte {
	out := make([]byte, p.n)
	p.coreHash(out, hashTypeMsg, key, m)
	return out
}

//hashF is the chaining function. out may alias in.
func (p *Params) hashF(out, in []byte, pub *prf, a *address) {
	var ab [addrSize]byte
	key := make([]byte, p.n)
	bm := make([]byte, p.n)
	a.setKeyAndMask(0)
	a.writeInto(ab[:])
	pub.sum(ab[:], key)
	a.setKeyAndMask(1)
	a.writeInto(ab[:])
	pub.sum(ab[:], bm)
	subtle.XORBytes(bm, in, bm)
	if p.hash == SHA2_256 {
		sha2F(key, bm, out)
		return
	}
	p.coreHash(out, hashTypeF, key, bm)
}

//randHash is H with bitmasks, used for tree nodes. out may alias left or right.
func (p *Params) randHash(out, left, right []byte, pub *prf, a *address) {
	var ab [addrSize]byte
	n := p.n
	key := make([]byte, n)
	bm := make([]byte, 2*n)
	a.setKeyAndMask(0)
	a.writeInto(ab[:])
	pub.sum(ab[:], key)
	a.setKeyAndMask(1)
	a.writeInto(ab[:])
	pub.sum(ab[:], bm[:n])
	a.setKeyAndMask(2)
	a.writeInto(ab[:])
	pub.sum(ab[:], bm[n:])
	subtle.XORBytes(bm[:n], left, bm[:n])
	subtle.XORBytes(bm[n:], right, bm[n:])
	if p.hash == SHA2_256 {
		sha2H(key, bm[:n], bm[n:], out)
		return
	}
	p.coreHash(out, hashTypeH, key, bm)
}

//midstate returns the SHA2-256 state after absorbing the single block
//toByte(typ, 32) || key. key is 32 bytes.
func midstate(typ byte, key []byte) []uint32 {
	stat := []uint32{
		sha256.Init0, sha256.Init1, sha256.Init2, sha256.Init3,
		sha256.Init4, sha256.Init5, sha256.Init6, sha256.Init7,
	}
	var buf [64]byte
	buf[31] = typ
	copy(buf[32:], key)
	sha256.Block(stat, buf[:])
	return stat
}

//finish absorbs a final 32 byte block tail into stat, padding a message of
//3 blocks, and writes the digest to out. stat is modified.
func finish(stat []uint32, tail, out []byte) {
	var buf [64]byte
	copy(buf[:], tail)
	buf[32] = 0x80
	buf[62] = 0x03
	sha256.Block(stat, buf[:])
	sha256.Int2Bytes(stat, out)
}

//sha2F is coreHash(F) for n=32 done on raw blocks.
func sha2F(key, m, out []byte) {
	finish(midstate(hashTypeF, key), m, out)
}

//sha2H is coreHash(H) for n=32; the padding takes a block of its own.
func sha2H(key, m1, m2, out []byte) {
	stat := midstate(hashTypeH, key)
	var buf [64]byte
	copy(buf[:], m1)
	copy(buf[32:], m2)
	sha256.Block(stat, buf[:])
	buf = [64]byte{0: 0x80, 62: 0x04}
	sha256.Block(stat, buf[:])
	sha256.Int2Bytes(stat, out)
}

//prf is the keyed PRF, PRF(key, m) with 32 bytes m.
//The absorbed toByte(3, n) || key prefix is computed once.
type prf struct {
	n      uint32
	block1 []uint32
	shake  sha3.ShakeHash
}

//newPRF returns the PRF keyed with key, which must be n bytes.
func (p *Params) newPRF(key []byte) *prf {
	f := &prf{
		n: p.n,
	}
	if p.hash == SHA2_256 {
		f.block1 = midstate(hashTypePRF, key)
		return f
	}
	prefix := make([]byte, p.n)
	toByte(prefix, hashTypePRF)
	f.shake = p.newShake()
	f.shake.Write(prefix)
	f.shake.Write(key)
	return f
}

//m:32bytes
func (f *prf) sum(m, out []byte) {
	if f.shake != nil {
		h := f.shake.Clone()
		h.Write(m)
		h.Read(out[:f.n])
		return
	}
	finish(append([]uint32(nil), f.block1...), m, out)
}

//sumInt is PRF(key, toByte(m, 32)).
func (f *prf) sumInt(m uint32, out []byte) {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint32(buf[28:], m)
	f.sum(buf, out)
}

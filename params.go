// Copyright (c) 2018 Aidos Developer

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
	"fmt"
	"math/bits"
)

//HashFunction selects the hash family used by F, H, H_msg and PRF.
//The numeric values are the ones carried in address descriptors.
type HashFunction uint8

//Hash families.
const (
	SHA2_256 HashFunction = iota
	SHAKE_128
	SHAKE_256
)

func (h HashFunction) String() string {
	switch h {
	case SHA2_256:
		return "SHA2_256"
	case SHAKE_128:
		return "SHAKE_128"
	case SHAKE_256:
		return "SHAKE_256"
	}
	return fmt.Sprintf("HashFunction(%d)", uint8(h))
}

//MaxHeight is the largest tree height accepted by NewParams.
const MaxHeight = 30

//Params is a validated XMSS parameter set.
type Params struct {
	hash   HashFunction
	n      uint32
	height uint32
	w      uint32
	k      uint32

	logW uint32
	len1 uint32
	len2 uint32
	wlen uint32
}

//NewParams validates the parameters and derives the WOTS+ lengths.
func NewParams(hash HashFunction, n, h, w, k uint32) (*Params, error) {
	switch {
	case hash > SHAKE_256:
		return nil, fmt.Errorf("%w: unknown hash function %d", ErrInvalidParams, hash)
	case n != 32 && n != 64:
		return nil, fmt.Errorf("%w: n must be 32 or 64, got %d", ErrInvalidParams, n)
	case hash == SHA2_256 && n != 32:
		return nil, fmt.Errorf("%w: SHA2_256 only supports n=32", ErrInvalidParams)
	case w != 4 && w != 16 && w != 256:
		return nil, fmt.Errorf("%w: w must be 4, 16 or 256, got %d", ErrInvalidParams, w)
	case h == 0 || h > MaxHeight:
		return nil, fmt.Errorf("%w: height %d out of range", ErrInvalidParams, h)
	case k < 2:
		return nil, fmt.Errorf("%w: k must be at least 2, got %d", ErrInvalidParams, k)
	case k >= h:
		return nil, fmt.Errorf("%w: k=%d must be less than height %d", ErrInvalidParams, k, h)
	case (h-k)%2 != 0:
		return nil, fmt.Errorf("%w: height-k must be even (h=%d k=%d)", ErrInvalidParams, h, k)
	}
	p := &Params{
		hash:   hash,
		n:      n,
		height: h,
		w:      w,
		k:      k,
		logW:   uint32(bits.TrailingZeros32(w)),
	}
	p.len1 = (8*n + p.logW - 1) / p.logW
	p.len2 = uint32(bits.Len32(p.len1*(w-1))-1)/p.logW + 1
	p.wlen = p.len1 + p.len2
	return p, nil
}

//DefaultParams returns n=32, w=16, k=2 with the given hash family and height.
func DefaultParams(hash HashFunction, h uint32) (*Params, error) {
	return NewParams(hash, 32, h, 16, 2)
}

//Hash returns the hash family.
func (p *Params) Hash() HashFunction { return p.hash }

//N returns the digest size in bytes.
func (p *Params) N() uint32 { return p.n }

//Height returns the tree height.
func (p *Params) Height() uint32 { return p.height }

//W returns the Winternitz parameter.
func (p *Params) W() uint32 { return p.w }

//K returns the BDS retain parameter.
func (p *Params) K() uint32 { return p.k }

//Len returns the number of WOTS+ chains.
func (p *Params) Len() uint32 { return p.wlen }

//Leaves returns the number of one-time keys, 2^h.
func (p *Params) Leaves() uint64 { return uint64(1) << p.height }

//WOTSSignatureSize is len*n.
func (p *Params) WOTSSignatureSize() int { return int(p.wlen * p.n) }

//SignatureSize is 4 + n + len*n + h*n.
func (p *Params) SignatureSize() int {
	return 4 + int(p.n) + p.WOTSSignatureSize() + int(p.height*p.n)
}

//PublicKeySize is ROOT || PUB_SEED.
func (p *Params) PublicKeySize() int { return 2 * int(p.n) }

//SecretKeySize is idx || SK_SEED || SK_PRF || PUB_SEED || ROOT.
func (p *Params) SecretKeySize() int { return 4 + 4*int(p.n) }

func (p *Params) String() string {
	return fmt.Sprintf("%s_n%d_h%d_w%d_k%d", p.hash, p.n, p.height, p.w, p.k)
}

//HeightFromSignatureSize recovers the tree height from a signature length
//for the given n and w.
func HeightFromSignatureSize(size int, hash HashFunction, n, w uint32) (uint32, error) {
	p, err := NewParams(hash, n, 4, w, 2)
	if err != nil {
		return 0, err
	}
	rest := size - 4 - int(n) - p.WOTSSignatureSize()
	if rest <= 0 || rest%int(n) != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a signature size", ErrInvalidSignature, size)
	}
	return uint32(rest / int(n)), nil
}

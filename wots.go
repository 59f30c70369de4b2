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
	"runtime"
	"sync"
)

//baseW reads in as a sequence of logW bit digits, most significant first.
func (p *Params) baseW(in []byte, outLen uint32) []uint32 {
	out := make([]uint32, outLen)
	var total, bits uint32
	consumed := 0
	for i := range out {
		if bits == 0 {
			total = uint32(in[consumed])
			consumed++
			bits = 8
		}
		bits -= p.logW
		out[i] = (total >> bits) & (p.w - 1)
	}
	return out
}

//chainLengths returns the len1 message digits followed by the len2 checksum digits.
func (p *Params) chainLengths(msg []byte) []uint32 {
	lengths := p.baseW(msg, p.len1)
	var csum uint32
	for _, d := range lengths {
		csum += p.w - 1 - d
	}
	csum <<= 8 - ((p.len2 * p.logW) % 8)
	cbytes := make([]byte, (p.len2*p.logW+7)/8)
	for i := len(cbytes) - 1; i >= 0; i-- {
		cbytes[i] = byte(csum)
		csum >>= 8
	}
	return append(lengths, p.baseW(cbytes, p.len2)...)
}

//chain applies F steps times from rung start. No F is applied at a hash
//position of w or more, so at most w applications are made from rung 0.
func (p *Params) chain(out, in []byte, start, steps uint32, pub *prf, a *address) {
	copy(out[:p.n], in)
	for i := start; i < start+steps && i < p.w; i++ {
		a.setHash(i)
		p.hashF(out[:p.n], out[:p.n], pub, a)
	}
}

//expandSeed derives the len secret chain starts from a per leaf seed.
func (p *Params) expandSeed(seed []byte) []byte {
	out := make([]byte, p.wlen*p.n)
	f := p.newPRF(seed)
	for i := uint32(0); i < p.wlen; i++ {
		f.sumInt(i, out[i*p.n:])
	}
	return out
}

//forChains calls fchain for every chain index with its own copy of a.
//When parallel is set chains are spread over GOMAXPROCS goroutines.
func (p *Params) forChains(parallel bool, a address, fchain func(i uint32, a *address)) {
	if !parallel {
		for i := uint32(0); i < p.wlen; i++ {
			a.setChain(i)
			fchain(i, &a)
		}
		return
	}
	var wg sync.WaitGroup
	ncpu := uint32(runtime.GOMAXPROCS(-1))
	nitem := p.wlen/ncpu + 1
	for i := uint32(0); i < ncpu; i++ {
		start := i * nitem
		if start >= p.wlen {
			break
		}
		end := start + nitem
		if end > p.wlen {
			end = p.wlen
		}
		wg.Add(1)
		go func(start, end uint32) {
			defer wg.Done()
			ca := a
			for j := start; j < end; j++ {
				ca.setChain(j)
				fchain(j, &ca)
			}
		}(start, end)
	}
	wg.Wait()
}

//wotsPKGen writes the len*n byte WOTS+ public key for seed into out.
func (p *Params) wotsPKGen(out, seed []byte, pub *prf, a *address, parallel bool) {
	sk := p.expandSeed(seed)
	p.forChains(parallel, *a, func(i uint32, ca *address) {
		p.chain(out[i*p.n:], sk[i*p.n:], 0, p.w-1, pub, ca)
	})
}

//wotsSign writes the len*n byte signature of the n byte msg into out.
func (p *Params) wotsSign(out, msg, seed []byte, pub *prf, a *address, parallel bool) {
	lengths := p.chainLengths(msg)
	sk := p.expandSeed(seed)
	p.forChains(parallel, *a, func(i uint32, ca *address) {
		p.chain(out[i*p.n:], sk[i*p.n:], 0, lengths[i], pub, ca)
	})
}

//wotsPKFromSig completes every chain of sig to recover the public key.
func (p *Params) wotsPKFromSig(out, sig, msg []byte, pub *prf, a *address, parallel bool) {
	lengths := p.chainLengths(msg)
	p.forChains(parallel, *a, func(i uint32, ca *address) {
		p.chain(out[i*p.n:], sig[i*p.n:(i+1)*p.n], lengths[i], p.w-1-lengths[i], pub, ca)
	})
}

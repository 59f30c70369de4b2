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

import "fmt"

//treehashInst is one treehash instance of the BDS state. It computes the
//next right node at height h to be used in the authentication path.
type treehashInst struct {
	h          uint32
	nextIdx    uint32
	stackUsage uint32
	completed  bool
	node       []byte
}

//bdsState is the BDS traversal state for one key.
//The node stack is shared by all treehash instances.
type bdsState struct {
	stack       [][]byte
	stackLevels []uint32
	stackOffset uint32
	auth        [][]byte
	keep        [][]byte
	treehash    []treehashInst
	retain      [][]byte
	nextLeaf    uint32
}

func nodes(count, n uint32) [][]byte {
	buf := make([]byte, count*n)
	out := make([][]byte, count)
	for i := range out {
		out[i] = buf[uint32(i)*n : uint32(i+1)*n : uint32(i+1)*n]
	}
	return out
}

func (p *Params) newBDSState() *bdsState {
	h, k, n := p.height, p.k, p.n
	s := &bdsState{
		stack:       nodes(h+1, n),
		stackLevels: make([]uint32, h+1),
		auth:        nodes(h, n),
		keep:        nodes(h>>1, n),
		treehash:    make([]treehashInst, h-k),
		retain:      nodes((1<<k)-k-1, n),
	}
	ths := nodes(h-k, n)
	for i := range s.treehash {
		s.treehash[i] = treehashInst{
			h:         uint32(i),
			completed: true,
			node:      ths[i],
		}
	}
	return s
}

//retainIndex is the slot in retain of the right node at height
//(>= h-k) whose index is index.
func (p *Params) retainIndex(height, index uint32) uint32 {
	return (1 << (p.height - 1 - height)) + height - p.height + ((index - 1) >> 1)
}

//initialize builds the whole tree, keeping the first authentication path,
//the first right node of every treehash height and the right nodes of the
//top k levels. It returns the root.
func (s *bdsState) initialize(p *Params, sk, pub *prf) []byte {
	h, k := p.height, p.k
	return p.treeHash(0, h, sk, pub, func(nh *nodeHash) {
		switch {
		case nh.height >= h || nh.index&0x1 == 0:
		case nh.index == 1:
			copy(s.auth[nh.height], nh.node)
		case nh.height < h-k && nh.index == 3:
			copy(s.treehash[nh.height].node, nh.node)
		case nh.height >= h-k:
			copy(s.retain[p.retainIndex(nh.height, nh.index-2)], nh.node)
		}
	})
}

//minHeightOnStack is the lowest height among the stack entries owned by th.
func (s *bdsState) minHeightOnStack(p *Params, th *treehashInst) uint32 {
	r := p.height
	for i := uint32(0); i < th.stackUsage; i++ {
		if lv := s.stackLevels[s.stackOffset-i-1]; lv < r {
			r = lv
		}
	}
	return r
}

//treehashStep adds one leaf to th and merges it with the stack as far as
//possible.
func (s *bdsState) treehashStep(p *Params, th *treehashInst, sk, pub *prf) {
	n := p.n
	var top address
	_, _, node := top.addresses()
	buf := make([]byte, 2*n)
	p.genLeaf(buf[:n], sk, pub, th.nextIdx, true)
	var nodeHeight uint32
	for th.stackUsage > 0 && s.stackLevels[s.stackOffset-1] == nodeHeight {
		copy(buf[n:], buf[:n])
		copy(buf[:n], s.stack[s.stackOffset-1])
		node.setTreeHeight(nodeHeight)
		node.setTreeIndex(th.nextIdx >> (nodeHeight + 1))
		p.randHash(buf[:n], buf[:n], buf[n:], pub, &node)
		nodeHeight++
		th.stackUsage--
		s.stackOffset--
	}
	if nodeHeight == th.h {
		copy(th.node, buf[:n])
		th.completed = true
		return
	}
	copy(s.stack[s.stackOffset], buf[:n])
	s.stackLevels[s.stackOffset] = nodeHeight
	s.stackOffset++
	th.stackUsage++
	th.nextIdx++
}

//treehashUpdate spends up to updates leaf computations on the treehash
//instances with the lowest pending node. It returns the unused budget.
func (s *bdsState) treehashUpdate(p *Params, updates uint32, sk, pub *prf) uint32 {
	h, k := p.height, p.k
	used := uint32(0)
	for j := uint32(0); j < updates; j++ {
		lmin := h
		level := h - k
		for i := uint32(0); i < h-k; i++ {
			th := &s.treehash[i]
			var low uint32
			switch {
			case th.completed:
				low = h
			case th.stackUsage == 0:
				low = i
			default:
				low = s.minHeightOnStack(p, th)
			}
			if low < lmin {
				level = i
				lmin = low
			}
		}
		if level == h-k {
			break
		}
		s.treehashStep(p, &s.treehash[level], sk, pub)
		used++
	}
	return updates - used
}

//round moves the authentication path from leaf to leaf+1.
func (s *bdsState) round(p *Params, leaf uint32, sk, pub *prf) error {
	h, k, n := p.height, p.k, p.n
	if uint64(leaf)+1 >= p.Leaves() {
		return fmt.Errorf("%w: no round after leaf %d", ErrKeyExhausted, leaf)
	}
	tau := h
	for i := uint32(0); i < h; i++ {
		if (leaf>>i)&0x1 == 0 {
			tau = i
			break
		}
	}
	buf := make([]byte, 2*n)
	if tau > 0 {
		copy(buf[:n], s.auth[tau-1])
		copy(buf[n:], s.keep[(tau-1)>>1])
	}
	if (leaf>>(tau+1))&0x1 == 0 && tau < h-1 {
		copy(s.keep[tau>>1], s.auth[tau])
	}
	if tau == 0 {
		p.genLeaf(s.auth[0], sk, pub, leaf, true)
		s.nextLeaf = leaf + 1
		return nil
	}
	var top address
	_, _, node := top.addresses()
	node.setTreeHeight(tau - 1)
	node.setTreeIndex(leaf >> tau)
	p.randHash(s.auth[tau], buf[:n], buf[n:], pub, &node)
	for i := uint32(0); i < tau; i++ {
		if i < h-k {
			copy(s.auth[i], s.treehash[i].node)
			continue
		}
		copy(s.auth[i], s.retain[p.retainIndex(i, leaf>>i)])
	}
	for i := uint32(0); i < tau && i < h-k; i++ {
		start := uint64(leaf) + 1 + 3*(uint64(1)<<i)
		if start < p.Leaves() {
			th := &s.treehash[i]
			th.h = i
			th.nextIdx = uint32(start)
			th.completed = false
			th.stackUsage = 0
		}
	}
	s.nextLeaf = leaf + 1
	return nil
}

//authPath returns a copy of the current authentication path.
func (s *bdsState) authPath(p *Params) []byte {
	out := make([]byte, 0, p.height*p.n)
	for _, a := range s.auth {
		out = append(out, a...)
	}
	return out
}

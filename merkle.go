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

//nodeHash is a node in the merkle tree.
type nodeHash struct {
	node   []byte
	height uint32
	index  uint32
}

//stack is the node stack used in treehash.
type stack struct {
	nodes []*nodeHash
}

func (s *stack) top() *nodeHash {
	return s.nodes[len(s.nodes)-1]
}

func (s *stack) nextTop() *nodeHash {
	return s.nodes[len(s.nodes)-2]
}

func (s *stack) push(n *nodeHash) {
	s.nodes = append(s.nodes, n)
}

func (s *stack) delete(i int) {
	for j := 0; j < i; j++ {
		s.nodes[len(s.nodes)-1-j] = nil
	}
	s.nodes = s.nodes[:len(s.nodes)-i]
}

//wotsSeed is the per leaf WOTS+ seed, PRF(ots address, SK_SEED).
func (p *Params) wotsSeed(sk *prf, ots *address) []byte {
	ots.setChain(0)
	ots.setHash(0)
	ots.setKeyAndMask(0)
	seed := make([]byte, p.n)
	sk.sum(ots.bytes(), seed)
	return seed
}

//genLeaf computes the leaf at idx: the L-tree root of its WOTS+ public key.
func (p *Params) genLeaf(out []byte, sk, pub *prf, idx uint32, parallel bool) {
	var top address
	ots, ltree, _ := top.addresses()
	ots.setOTS(idx)
	ltree.setLTree(idx)
	pk := make([]byte, p.wlen*p.n)
	p.wotsPKGen(pk, p.wotsSeed(sk, &ots), pub, &ots, parallel)
	p.lTree(out, pk, pub, &ltree)
}

//lTree compresses the len public key elements in pk into out.
//pk is overwritten.
func (p *Params) lTree(out, pk []byte, pub *prf, a *address) {
	n := p.n
	l := p.wlen
	var height uint32
	a.setTreeHeight(0)
	for l > 1 {
		for i := uint32(0); i < l>>1; i++ {
			a.setTreeIndex(i)
			p.randHash(pk[i*n:(i+1)*n], pk[2*i*n:(2*i+1)*n], pk[(2*i+1)*n:(2*i+2)*n], pub, a)
		}
		if l&0x1 == 1 {
			copy(pk[(l>>1)*n:], pk[(l-1)*n:l*n])
			l = (l >> 1) + 1
		} else {
			l >>= 1
		}
		height++
		a.setTreeHeight(height)
	}
	copy(out, pk[:n])
}

//treeHash computes the root of the subtree of the given height whose
//leftmost leaf is start. observe, if not nil, is called with every node
//as it is created, leaves included.
func (p *Params) treeHash(start, height uint32, sk, pub *prf, observe func(*nodeHash)) []byte {
	var top address
	_, _, node := top.addresses()
	s := stack{
		nodes: make([]*nodeHash, 0, height+1),
	}
	end := start + uint32(1)<<height
	for idx := start; idx < end; idx++ {
		leaf := &nodeHash{
			node:  make([]byte, p.n),
			index: idx,
		}
		p.genLeaf(leaf.node, sk, pub, idx, true)
		if observe != nil {
			observe(leaf)
		}
		s.push(leaf)
		for len(s.nodes) >= 2 && s.top().height == s.nextTop().height {
			right := s.top()
			left := s.nextTop()
			nh := &nodeHash{
				node:   make([]byte, p.n),
				height: right.height + 1,
				index:  right.index >> 1,
			}
			node.setTreeHeight(right.height)
			node.setTreeIndex(nh.index)
			p.randHash(nh.node, left.node, right.node, pub, &node)
			s.delete(2)
			s.push(nh)
			if observe != nil {
				observe(nh)
			}
		}
	}
	return s.top().node
}

//authPath rebuilds the whole tree and returns its root and the h*n byte
//authentication path of leaf.
func (p *Params) authPath(leaf uint32, sk, pub *prf) (root, auth []byte) {
	auth = make([]byte, p.height*p.n)
	root = p.treeHash(0, p.height, sk, pub, func(nh *nodeHash) {
		if nh.height < p.height && nh.index == (leaf>>nh.height)^1 {
			copy(auth[nh.height*p.n:], nh.node)
		}
	})
	return root, auth
}

//rootFromAuthPath climbs from leaf at idx to the root along auth.
func (p *Params) rootFromAuthPath(leaf []byte, idx uint32, auth []byte, pub *prf) []byte {
	var top address
	_, _, node := top.addresses()
	n := p.n
	out := make([]byte, n)
	copy(out, leaf)
	for k := uint32(0); k < p.height; k++ {
		node.setTreeHeight(k)
		node.setTreeIndex(idx >> 1)
		if idx&0x1 == 0 {
			p.randHash(out, out, auth[k*n:(k+1)*n], pub, &node)
		} else {
			p.randHash(out, auth[k*n:(k+1)*n], out, pub, &node)
		}
		idx >>= 1
	}
	return out
}

//rootFromSig recomputes the tree root implied by sig over the digest.
func (p *Params) rootFromSig(sig *Signature, digest []byte, pub *prf) []byte {
	var top address
	ots, ltree, _ := top.addresses()
	ots.setOTS(sig.Index)
	ltree.setLTree(sig.Index)
	pk := make([]byte, p.wlen*p.n)
	p.wotsPKFromSig(pk, sig.WOTS, digest, pub, &ots, true)
	leaf := make([]byte, p.n)
	p.lTree(leaf, pk, pub, &ltree)
	return p.rootFromAuthPath(leaf, sig.Index, sig.AuthPath, pub)
}

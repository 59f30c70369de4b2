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
	"testing"
)

type testTree struct {
	p       *Params
	sk, pub *prf
	root    []byte
	nodes   map[[2]uint32][]byte
}

func newTestTree(t *testing.T, p *Params) *testTree {
	t.Helper()
	tr := &testTree{
		p:     p,
		sk:    p.newPRF(bytes.Repeat([]byte{1}, int(p.n))),
		pub:   p.newPRF(bytes.Repeat([]byte{2}, int(p.n))),
		nodes: make(map[[2]uint32][]byte),
	}
	tr.root = p.treeHash(0, p.height, tr.sk, tr.pub, func(nh *nodeHash) {
		tr.nodes[[2]uint32{nh.height, nh.index}] = bytes.Clone(nh.node)
	})
	if uint64(len(tr.nodes)) != 2*p.Leaves()-1 {
		t.Fatal("incorrect number of nodes", len(tr.nodes))
	}
	return tr
}

func (tr *testTree) authPath(leaf uint32) []byte {
	var auth []byte
	for i := uint32(0); i < tr.p.height; i++ {
		auth = append(auth, tr.nodes[[2]uint32{i, (leaf >> i) ^ 1}]...)
	}
	return auth
}

func TestTreeHash(t *testing.T) {
	p, err := DefaultParams(SHA2_256, 4)
	if err != nil {
		t.Fatal(err)
	}
	tr := newTestTree(t, p)
	if !bytes.Equal(tr.root, tr.nodes[[2]uint32{4, 0}]) {
		t.Error("incorrect root")
	}
	left := p.treeHash(0, 3, tr.sk, tr.pub, nil)
	right := p.treeHash(8, 3, tr.sk, tr.pub, nil)
	if !bytes.Equal(left, tr.nodes[[2]uint32{3, 0}]) || !bytes.Equal(right, tr.nodes[[2]uint32{3, 1}]) {
		t.Error("incorrect subtree roots")
	}

	leaf := make([]byte, 32)
	for i := uint32(0); i < 16; i++ {
		p.genLeaf(leaf, tr.sk, tr.pub, i, false)
		if !bytes.Equal(leaf, tr.nodes[[2]uint32{0, i}]) {
			t.Error("incorrect leaf", i)
		}
		root, auth := p.authPath(i, tr.sk, tr.pub)
		if !bytes.Equal(root, tr.root) {
			t.Error("incorrect root from authPath")
		}
		if !bytes.Equal(auth, tr.authPath(i)) {
			t.Error("incorrect auth path of leaf", i)
		}
		if !bytes.Equal(p.rootFromAuthPath(leaf, i, auth, tr.pub), tr.root) {
			t.Error("auth path does not lead to the root", i)
		}
		if bytes.Equal(p.rootFromAuthPath(leaf, i^1, auth, tr.pub), tr.root) {
			t.Error("auth path must not fit another leaf", i)
		}
	}
}

func TestLTree(t *testing.T) {
	p, err := DefaultParams(SHAKE_128, 4)
	if err != nil {
		t.Fatal(err)
	}
	pub := p.newPRF(make([]byte, 32))
	pk := make([]byte, p.wlen*p.n)
	for i := range pk {
		pk[i] = byte(i)
	}
	var a address
	a.setType(addrTypeLTree)
	a.setLTree(1)
	b := a
	out1 := make([]byte, 32)
	p.lTree(out1, bytes.Clone(pk), pub, &a)
	out2 := make([]byte, 32)
	p.lTree(out2, bytes.Clone(pk), pub, &b)
	if !bytes.Equal(out1, out2) {
		t.Error("lTree must be deterministic")
	}
	pk[len(pk)-1] ^= 1
	b.setLTree(1)
	p.lTree(out2, pk, pub, &b)
	if bytes.Equal(out1, out2) {
		t.Error("lTree must depend on the odd last element")
	}
}

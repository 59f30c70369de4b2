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

//Traversal selects how authentication paths are produced.
type Traversal uint8

const (
	//TraversalBDS keeps BDS state and updates it after every signature.
	TraversalBDS Traversal = iota
	//TraversalFull rebuilds the whole tree for every signature.
	TraversalFull
)

func (t Traversal) String() string {
	switch t {
	case TraversalBDS:
		return "bds"
	case TraversalFull:
		return "full"
	}
	return fmt.Sprintf("Traversal(%d)", uint8(t))
}

//AuthPathProvider supplies the authentication path of the leaf being signed.
//Both providers return identical paths for identical keys.
type AuthPathProvider interface {
	//Root returns the tree root.
	Root() []byte
	//AuthPath returns the h*n byte authentication path of leaf.
	AuthPath(leaf uint32) ([]byte, error)
	//Next is called once leaf has been used and prepares leaf+1.
	Next(leaf uint32) error
}

//FullRecomputeProvider recomputes the whole tree on each request.
type FullRecomputeProvider struct {
	p       *Params
	sk, pub *prf
	root    []byte
}

func newFullRecomputeProvider(p *Params, sk, pub *prf) *FullRecomputeProvider {
	return &FullRecomputeProvider{
		p:    p,
		sk:   sk,
		pub:  pub,
		root: p.treeHash(0, p.height, sk, pub, nil),
	}
}

//Root returns the tree root.
func (f *FullRecomputeProvider) Root() []byte {
	return f.root
}

//AuthPath rebuilds the tree for leaf.
func (f *FullRecomputeProvider) AuthPath(leaf uint32) ([]byte, error) {
	if uint64(leaf) >= f.p.Leaves() {
		return nil, fmt.Errorf("%w: leaf %d", ErrIndexTooHigh, leaf)
	}
	_, auth := f.p.authPath(leaf, f.sk, f.pub)
	return auth, nil
}

//Next does nothing; there is no state to move.
func (f *FullRecomputeProvider) Next(leaf uint32) error {
	if uint64(leaf) >= f.p.Leaves() {
		return fmt.Errorf("%w: leaf %d", ErrIndexTooHigh, leaf)
	}
	return nil
}

//BDSProvider keeps BDS traversal state, spending (h-k)/2 leaf computations
//per signature.
type BDSProvider struct {
	p       *Params
	sk, pub *prf
	state   *bdsState
	root    []byte
}

func newBDSProvider(p *Params, sk, pub *prf) *BDSProvider {
	b := &BDSProvider{
		p:     p,
		sk:    sk,
		pub:   pub,
		state: p.newBDSState(),
	}
	b.root = b.state.initialize(p, sk, pub)
	return b
}

//Root returns the tree root.
func (b *BDSProvider) Root() []byte {
	return b.root
}

//AuthPath returns the current path, which only serves the state's next leaf.
func (b *BDSProvider) AuthPath(leaf uint32) ([]byte, error) {
	if leaf != b.state.nextLeaf {
		return nil, fmt.Errorf("%w: state serves leaf %d, asked for %d",
			ErrStateMismatch, b.state.nextLeaf, leaf)
	}
	return b.state.authPath(b.p), nil
}

//Next runs one BDS round and treehash update. The last leaf has no round.
func (b *BDSProvider) Next(leaf uint32) error {
	if leaf != b.state.nextLeaf {
		return fmt.Errorf("%w: state serves leaf %d, asked to leave %d",
			ErrStateMismatch, b.state.nextLeaf, leaf)
	}
	if uint64(leaf)+1 >= b.p.Leaves() {
		return nil
	}
	if err := b.state.round(b.p, leaf, b.sk, b.pub); err != nil {
		return err
	}
	b.state.treehashUpdate(b.p, (b.p.height-b.p.k)>>1, b.sk, b.pub)
	return nil
}

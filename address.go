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

import "encoding/binary"

const (
	addrTypeOTS      = 0
	addrTypeLTree    = 1
	addrTypeHashTree = 2
)

const addrSize = 32

//address is the 8 word hash address.
//words 4..6 are interpreted according to the type in word 3.
type address [8]uint32

func (a *address) setLayer(layer uint32) {
	a[0] = layer
}

func (a *address) setTree(tree uint64) {
	a[1] = uint32(tree >> 32)
	a[2] = uint32(tree)
}

//setType also clears every type dependent word.
func (a *address) setType(typ uint32) {
	a[3] = typ
	a[4], a[5], a[6], a[7] = 0, 0, 0, 0
}

func (a *address) setKeyAndMask(km uint32) {
	a[7] = km
}

func (a *address) setOTS(ots uint32) {
	a[4] = ots
}

func (a *address) setChain(chain uint32) {
	a[5] = chain
}

func (a *address) setHash(hash uint32) {
	a[6] = hash
}

func (a *address) setLTree(ltree uint32) {
	a[4] = ltree
}

func (a *address) setTreeHeight(height uint32) {
	a[5] = height
}

func (a *address) setTreeIndex(index uint32) {
	a[6] = index
}

//subTree returns a fresh address carrying only layer and tree of a.
func (a *address) subTree() address {
	var b address
	b[0], b[1], b[2] = a[0], a[1], a[2]
	return b
}

func (a *address) writeInto(buf []byte) {
	for i := 0; i < 8; i++ {
		binary.BigEndian.PutUint32(buf[i*4:], a[i])
	}
}

func (a *address) bytes() []byte {
	buf := make([]byte, addrSize)
	a.writeInto(buf)
	return buf
}

//addresses returns the three typed addresses of one subtree.
func (a *address) addresses() (ots, ltree, node address) {
	ots, ltree, node = a.subTree(), a.subTree(), a.subTree()
	ots.setType(addrTypeOTS)
	ltree.setType(addrTypeLTree)
	node.setType(addrTypeHashTree)
	return
}

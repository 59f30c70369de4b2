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
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/vmihailenco/msgpack"
)

type treehashExport struct {
	H          uint32
	NextIdx    uint32
	StackUsage uint32
	Completed  bool
	Node       []byte
}

type bdsExport struct {
	Stack       [][]byte
	StackLevels []uint32
	StackOffset uint32
	Auth        [][]byte
	Keep        [][]byte
	Retain      [][]byte
	Treehash    []treehashExport
	NextLeaf    uint32
}

type keyState struct {
	Hash      HashFunction
	N         uint32
	Height    uint32
	W         uint32
	K         uint32
	Traversal Traversal
	SecretKey []byte
	BDS       *bdsExport
	Checksum  uint64
}

//sum is the xxhash of every field but Checksum.
func (s *keyState) sum() uint64 {
	d := xxhash.New()
	num := make([]byte, 4)
	putInt := func(v uint32) {
		binary.BigEndian.PutUint32(num, v)
		d.Write(num)
	}
	putInt(uint32(s.Hash))
	putInt(s.N)
	putInt(s.Height)
	putInt(s.W)
	putInt(s.K)
	putInt(uint32(s.Traversal))
	d.Write(s.SecretKey)
	if b := s.BDS; b != nil {
		for _, v := range b.Stack {
			d.Write(v)
		}
		for _, v := range b.StackLevels {
			putInt(v)
		}
		putInt(b.StackOffset)
		for _, nodes := range [][][]byte{b.Auth, b.Keep, b.Retain} {
			for _, v := range nodes {
				d.Write(v)
			}
		}
		for _, th := range b.Treehash {
			putInt(th.H)
			putInt(th.NextIdx)
			putInt(th.StackUsage)
			if th.Completed {
				putInt(1)
			} else {
				putInt(0)
			}
			d.Write(th.Node)
		}
		putInt(b.NextLeaf)
	}
	return d.Sum64()
}

func cloneNodes(nodes [][]byte) [][]byte {
	out := make([][]byte, len(nodes))
	for i, v := range nodes {
		out[i] = bytes.Clone(v)
	}
	return out
}

func (s *bdsState) exports() *bdsExport {
	e := &bdsExport{
		Stack:       cloneNodes(s.stack),
		StackLevels: append([]uint32(nil), s.stackLevels...),
		StackOffset: s.stackOffset,
		Auth:        cloneNodes(s.auth),
		Keep:        cloneNodes(s.keep),
		Retain:      cloneNodes(s.retain),
		Treehash:    make([]treehashExport, len(s.treehash)),
		NextLeaf:    s.nextLeaf,
	}
	for i, th := range s.treehash {
		e.Treehash[i] = treehashExport{
			H:          th.h,
			NextIdx:    th.nextIdx,
			StackUsage: th.stackUsage,
			Completed:  th.completed,
			Node:       bytes.Clone(th.node),
		}
	}
	return e
}

func checkNodes(name string, nodes [][]byte, count, n uint32) error {
	if uint32(len(nodes)) != count {
		return fmt.Errorf("%w: %s has %d nodes, want %d", ErrInvalidKey, name, len(nodes), count)
	}
	for _, v := range nodes {
		if uint32(len(v)) != n {
			return fmt.Errorf("%w: %s node of %d bytes", ErrInvalidKey, name, len(v))
		}
	}
	return nil
}

func (p *Params) importBDS(e *bdsExport) (*bdsState, error) {
	h, k, n := p.height, p.k, p.n
	if e == nil {
		return nil, fmt.Errorf("%w: missing traversal state", ErrInvalidKey)
	}
	if err := checkNodes("stack", e.Stack, h+1, n); err != nil {
		return nil, err
	}
	if err := checkNodes("auth", e.Auth, h, n); err != nil {
		return nil, err
	}
	if err := checkNodes("keep", e.Keep, h>>1, n); err != nil {
		return nil, err
	}
	if err := checkNodes("retain", e.Retain, (1<<k)-k-1, n); err != nil {
		return nil, err
	}
	if uint32(len(e.StackLevels)) != h+1 || uint32(len(e.Treehash)) != h-k {
		return nil, fmt.Errorf("%w: traversal state does not fit height %d", ErrInvalidKey, h)
	}
	s := &bdsState{
		stack:       e.Stack,
		stackLevels: e.StackLevels,
		stackOffset: e.StackOffset,
		auth:        e.Auth,
		keep:        e.Keep,
		retain:      e.Retain,
		treehash:    make([]treehashInst, h-k),
		nextLeaf:    e.NextLeaf,
	}
	var usage uint32
	incomplete := false
	for i, th := range e.Treehash {
		if uint32(len(th.Node)) != n || th.H != uint32(i) {
			return nil, fmt.Errorf("%w: treehash instance %d", ErrInvalidKey, i)
		}
		s.treehash[i] = treehashInst{
			h:          th.H,
			nextIdx:    th.NextIdx,
			stackUsage: th.StackUsage,
			completed:  th.Completed,
			node:       th.Node,
		}
		if !th.Completed && (uint64(th.NextIdx) >= p.Leaves() || th.StackUsage > th.H) {
			return nil, fmt.Errorf("%w: treehash instance %d at leaf %d using %d nodes",
				ErrInvalidKey, i, th.NextIdx, th.StackUsage)
		}
		if !th.Completed {
			incomplete = true
		}
		usage += th.StackUsage
	}
	if usage != s.stackOffset || s.stackOffset > h+1 {
		return nil, fmt.Errorf("%w: stack offset %d, instances use %d", ErrInvalidKey, s.stackOffset, usage)
	}
	//an incomplete instance may push one more node
	if incomplete && s.stackOffset == h+1 {
		return nil, fmt.Errorf("%w: stack is full", ErrInvalidKey)
	}
	for i := uint32(0); i < s.stackOffset; i++ {
		if s.stackLevels[i] >= h {
			return nil, fmt.Errorf("%w: stack node %d at height %d", ErrInvalidKey, i, s.stackLevels[i])
		}
	}
	return s, nil
}

func (k *PrivateKey) exports() *keyState {
	k.mu.Lock()
	defer k.mu.Unlock()
	p := k.params
	s := &keyState{
		Hash:      p.hash,
		N:         p.n,
		Height:    p.height,
		W:         p.w,
		K:         p.k,
		Traversal: k.traversal,
		SecretKey: k.sk.Bytes(),
	}
	if b, ok := k.provider.(*BDSProvider); ok {
		s.BDS = b.state.exports()
	}
	s.Checksum = s.sum()
	return s
}

func (k *PrivateKey) imports(s *keyState) error {
	if s.sum() != s.Checksum {
		return fmt.Errorf("%w: checksum mismatch", ErrInvalidKey)
	}
	p, err := NewParams(s.Hash, s.N, s.Height, s.W, s.K)
	if err != nil {
		return err
	}
	if len(s.SecretKey) != p.SecretKeySize() {
		return fmt.Errorf("%w: secret key is %d bytes", ErrInvalidKey, len(s.SecretKey))
	}
	sk := newSecretKey(p.n)
	copy(sk.b, s.SecretKey)
	wotsPRF := p.newPRF(sk.field(0))
	pubPRF := p.newPRF(sk.field(2))
	var provider AuthPathProvider
	switch s.Traversal {
	case TraversalBDS:
		state, err := p.importBDS(s.BDS)
		if err != nil {
			return err
		}
		idx := uint64(sk.Index())
		if idx > p.Leaves() || (uint64(state.nextLeaf) != idx &&
			!(idx == p.Leaves() && uint64(state.nextLeaf)+1 == idx)) {
			return fmt.Errorf("%w: state at leaf %d, index %d", ErrStateMismatch, state.nextLeaf, idx)
		}
		provider = &BDSProvider{
			p:     p,
			sk:    wotsPRF,
			pub:   pubPRF,
			state: state,
			root:  sk.Root(),
		}
	case TraversalFull:
		if uint64(sk.Index()) > p.Leaves() {
			return fmt.Errorf("%w: index %d", ErrInvalidKey, sk.Index())
		}
		provider = &FullRecomputeProvider{
			p:    p,
			sk:   wotsPRF,
			pub:  pubPRF,
			root: sk.Root(),
		}
	default:
		return fmt.Errorf("%w: unknown traversal %d", ErrInvalidKey, s.Traversal)
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.params = p
	k.sk = sk
	k.traversal = s.Traversal
	k.provider = provider
	k.wotsPRF = wotsPRF
	k.msgPRF = p.newPRF(sk.field(1))
	k.pubPRF = pubPRF
	return nil
}

//MarshalJSON marshals the key and its traversal state into JSON.
func (k *PrivateKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.exports())
}

//UnmarshalJSON unmarshals JSON to PrivateKey.
func (k *PrivateKey) UnmarshalJSON(b []byte) error {
	var s keyState
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	return k.imports(&s)
}

//EncodeMsgpack marshals the key into msgpack.
func (k *PrivateKey) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(k.exports())
}

//DecodeMsgpack unmarshals msgpack to PrivateKey.
func (k *PrivateKey) DecodeMsgpack(dec *msgpack.Decoder) error {
	var s keyState
	if err := dec.Decode(&s); err != nil {
		return err
	}
	return k.imports(&s)
}

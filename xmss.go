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
	"crypto/subtle"
	"encoding/binary"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"
)

//SeedSize is the size of the seed keys are generated from.
const SeedSize = 48

//SecretKey is idx(4) || SK_SEED || SK_PRF || PUB_SEED || ROOT.
type SecretKey struct {
	n uint32
	b []byte
}

func newSecretKey(n uint32) SecretKey {
	return SecretKey{
		n: n,
		b: make([]byte, 4+4*n),
	}
}

//Index returns the next unused leaf.
func (s SecretKey) Index() uint32 {
	return binary.BigEndian.Uint32(s.b)
}

func (s SecretKey) setIndex(idx uint32) {
	binary.BigEndian.PutUint32(s.b, idx)
}

func (s SecretKey) field(i uint32) []byte {
	return s.b[4+i*s.n : 4+(i+1)*s.n]
}

//SKSeed returns a copy of SK_SEED.
func (s SecretKey) SKSeed() []byte { return bytes.Clone(s.field(0)) }

//SKPRF returns a copy of SK_PRF.
func (s SecretKey) SKPRF() []byte { return bytes.Clone(s.field(1)) }

//PubSeed returns a copy of PUB_SEED.
func (s SecretKey) PubSeed() []byte { return bytes.Clone(s.field(2)) }

//Root returns a copy of ROOT.
func (s SecretKey) Root() []byte { return bytes.Clone(s.field(3)) }

//Bytes returns a copy of the serialized secret key.
func (s SecretKey) Bytes() []byte { return bytes.Clone(s.b) }

//PrivateKey is a stateful XMSS signing key.
//Sign and SetIndex may be called from several goroutines; they are serialized.
type PrivateKey struct {
	mu        sync.Mutex
	params    *Params
	sk        SecretKey
	traversal Traversal
	provider  AuthPathProvider

	wotsPRF *prf //SK_SEED, generates WOTS+ seeds of leaves.
	msgPRF  *prf //SK_PRF, generates the randomness R of signatures.
	pubPRF  *prf //PUB_SEED, generates keys and bitmasks.
}

//GenerateKeyPair makes a key with BDS traversal from a 48 byte seed.
func GenerateKeyPair(seed []byte, p *Params) (*PrivateKey, error) {
	return GenerateKeyPairWith(seed, p, TraversalBDS)
}

//GenerateKeyPairWith makes a key from a 48 byte seed using traversal t.
//The same seed and params always give the same key.
func GenerateKeyPairWith(seed []byte, p *Params, t Traversal) (*PrivateKey, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil params", ErrInvalidParams)
	}
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidSeed, len(seed), SeedSize)
	}
	sk := newSecretKey(p.n)
	sha3.ShakeSum256(sk.b[4:4+3*p.n], seed)
	k, err := newPrivateKey(p, sk, t)
	if err != nil {
		return nil, err
	}
	log().Debug("generated xmss key",
		zap.Stringer("params", p),
		zap.Stringer("traversal", t))
	return k, nil
}

//RestoreKey rebuilds a key from its serialized secret key, replaying the
//traversal up to the stored index.
func RestoreKey(p *Params, secret []byte, t Traversal) (*PrivateKey, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil params", ErrInvalidParams)
	}
	if len(secret) != p.SecretKeySize() {
		return nil, fmt.Errorf("%w: secret key is %d bytes, want %d",
			ErrInvalidKey, len(secret), p.SecretKeySize())
	}
	sk := newSecretKey(p.n)
	copy(sk.b, secret)
	idx := sk.Index()
	sk.setIndex(0)
	k, err := newPrivateKey(p, sk, t)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(k.provider.Root(), secret[4+3*p.n:]) {
		return nil, fmt.Errorf("%w: root does not match seeds", ErrInvalidKey)
	}
	if uint64(idx) < p.Leaves() {
		if err := k.SetIndex(idx); err != nil {
			return nil, err
		}
		return k, nil
	}
	if err := k.SetIndex(idx - 1); err != nil {
		return nil, err
	}
	if err := k.advance(idx, true); err != nil {
		return nil, err
	}
	return k, nil
}

func newPrivateKey(p *Params, sk SecretKey, t Traversal) (*PrivateKey, error) {
	k := &PrivateKey{
		params:    p,
		sk:        sk,
		traversal: t,
		wotsPRF:   p.newPRF(sk.field(0)),
		msgPRF:    p.newPRF(sk.field(1)),
		pubPRF:    p.newPRF(sk.field(2)),
	}
	switch t {
	case TraversalBDS:
		k.provider = newBDSProvider(p, k.wotsPRF, k.pubPRF)
	case TraversalFull:
		k.provider = newFullRecomputeProvider(p, k.wotsPRF, k.pubPRF)
	default:
		return nil, fmt.Errorf("%w: unknown traversal %d", ErrInvalidParams, t)
	}
	copy(sk.field(3), k.provider.Root())
	return k, nil
}

//Params returns the parameter set of the key.
func (k *PrivateKey) Params() *Params {
	return k.params
}

//Traversal returns the traversal the key was built with.
func (k *PrivateKey) Traversal() Traversal {
	return k.traversal
}

//Height returns the tree height.
func (k *PrivateKey) Height() uint32 {
	return k.params.height
}

//PublicKey returns ROOT || PUB_SEED.
func (k *PrivateKey) PublicKey() []byte {
	pk := make([]byte, 0, k.params.PublicKeySize())
	pk = append(pk, k.sk.field(3)...)
	return append(pk, k.sk.field(2)...)
}

//SecretKey returns a snapshot of the secret key.
func (k *PrivateKey) SecretKey() SecretKey {
	k.mu.Lock()
	defer k.mu.Unlock()
	return SecretKey{
		n: k.sk.n,
		b: k.sk.Bytes(),
	}
}

//Index returns the next leaf to be used.
func (k *PrivateKey) Index() uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.sk.Index()
}

//RemainingSignatures returns how many signatures the key can still make.
func (k *PrivateKey) RemainingSignatures() uint64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.params.Leaves() - uint64(k.sk.Index())
}

//checkIndex validates moving the index from cur to next. consume is set
//when Sign uses leaf cur, which may take the index up to 2^h.
func checkIndex(p *Params, cur, next uint32, consume bool) error {
	switch {
	case consume && uint64(cur) >= p.Leaves():
		return fmt.Errorf("%w: all %d signatures used", ErrKeyExhausted, p.Leaves())
	case next < cur:
		return fmt.Errorf("%w: from %d to %d", ErrIndexRewind, cur, next)
	case !consume && uint64(next) >= p.Leaves():
		return fmt.Errorf("%w: %d with %d leaves", ErrIndexTooHigh, next, p.Leaves())
	}
	return nil
}

//advance is the only place the stored index is written.
func (k *PrivateKey) advance(next uint32, consume bool) error {
	cur := k.sk.Index()
	if err := checkIndex(k.params, cur, next, consume); err != nil {
		log().Warn("rejected index change",
			zap.Uint32("from", cur),
			zap.Uint32("to", next),
			zap.Error(err))
		return err
	}
	k.sk.setIndex(next)
	log().Debug("index changed", zap.Uint32("from", cur), zap.Uint32("to", next))
	return nil
}

//SetIndex skips forward to idx, moving the traversal state with it.
//Leaves below idx can never be used afterwards.
func (k *PrivateKey) SetIndex(idx uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	cur := k.sk.Index()
	if err := checkIndex(k.params, cur, idx, false); err != nil {
		return k.advance(idx, false)
	}
	for j := cur; j < idx; j++ {
		if err := k.provider.Next(j); err != nil {
			return fmt.Errorf("moving to leaf %d: %w", j+1, err)
		}
	}
	return k.advance(idx, false)
}

//Sign signs msg with the next unused leaf.
//The index is advanced before the signature is made.
func (k *PrivateKey) Sign(msg []byte) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p := k.params
	idx := k.sk.Index()
	if err := k.advance(idx+1, true); err != nil {
		return nil, err
	}
	sig := &Signature{
		Index: idx,
		R:     make([]byte, p.n),
		WOTS:  make([]byte, p.WOTSSignatureSize()),
	}
	k.msgPRF.sumInt(idx, sig.R)
	digest := p.hashMsg(p.msgKey(sig.R, k.sk.field(3), idx), msg)

	var top address
	ots, _, _ := top.addresses()
	ots.setOTS(idx)
	p.wotsSign(sig.WOTS, digest, p.wotsSeed(k.wotsPRF, &ots), k.pubPRF, &ots, true)

	auth, err := k.provider.AuthPath(idx)
	if err != nil {
		return nil, err
	}
	sig.AuthPath = auth
	if err := k.provider.Next(idx); err != nil {
		return nil, err
	}
	return sig.Bytes(), nil
}

//msgKey is R || ROOT || toByte(idx, n).
func (p *Params) msgKey(r, root []byte, idx uint32) []byte {
	key := make([]byte, 3*p.n)
	copy(key, r)
	copy(key[p.n:], root)
	toByte(key[2*p.n:], idx)
	return key
}

//Signature is a parsed XMSS signature.
type Signature struct {
	Index    uint32
	R        []byte
	WOTS     []byte
	AuthPath []byte
}

//ParseSignature splits b according to p.
func ParseSignature(p *Params, b []byte) (*Signature, error) {
	if len(b) != p.SignatureSize() {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrInvalidSignature, len(b), p.SignatureSize())
	}
	n := int(p.n)
	wsize := p.WOTSSignatureSize()
	sig := &Signature{
		Index:    binary.BigEndian.Uint32(b),
		R:        b[4 : 4+n],
		WOTS:     b[4+n : 4+n+wsize],
		AuthPath: b[4+n+wsize:],
	}
	if uint64(sig.Index) >= p.Leaves() {
		return nil, fmt.Errorf("%w: index %d out of range", ErrInvalidSignature, sig.Index)
	}
	return sig, nil
}

//Bytes serializes the signature as idx || R || WOTS || auth.
func (s *Signature) Bytes() []byte {
	out := make([]byte, 4, 4+len(s.R)+len(s.WOTS)+len(s.AuthPath))
	binary.BigEndian.PutUint32(out, s.Index)
	out = append(out, s.R...)
	out = append(out, s.WOTS...)
	return append(out, s.AuthPath...)
}

//Verify reports whether sig is a valid signature of msg under pk.
func Verify(p *Params, msg, sig, pk []byte) bool {
	if p == nil || len(pk) != p.PublicKeySize() {
		return false
	}
	s, err := ParseSignature(p, sig)
	if err != nil {
		return false
	}
	n := p.n
	root := pk[:n]
	pub := p.newPRF(pk[n:])
	digest := p.hashMsg(p.msgKey(s.R, root, s.Index), msg)
	return subtle.ConstantTimeCompare(p.rootFromSig(s, digest, pub), root) == 1
}

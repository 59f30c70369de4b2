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

//Package descriptor implements the 3 byte key descriptor, extended public
//keys and SHA256_2X addresses.
package descriptor

import (
	"errors"
	"fmt"

	sha256 "github.com/AidosKuneen/sha256-simd"
	xmss "github.com/AidosKuneen/xmssfast"
)

//SignatureType is the scheme nibble of the descriptor.
type SignatureType uint8

//XMSS is the only signature type.
const XMSS SignatureType = 0

//AddrFormat selects how addresses are derived.
type AddrFormat uint8

//SHA256_2X is descriptor || SHA256(epk) || checksum.
const SHA256_2X AddrFormat = 0

//Sizes.
const (
	Size           = 3
	addrHashSize   = 32
	checksumSize   = 4
	AddressSize    = Size + addrHashSize + checksumSize
	publicKeyN     = 32
	ExtendedPKSize = Size + 2*publicKeyN
	nibble         = 0x0F
)

var (
	//ErrInvalidDescriptor is returned for malformed descriptors.
	ErrInvalidDescriptor = errors.New("descriptor: invalid descriptor")
	//ErrUnsupportedFormat is returned for address formats other than SHA256_2X.
	ErrUnsupportedFormat = errors.New("descriptor: unsupported address format")
)

//Descriptor describes the parameters of a key.
type Descriptor struct {
	Hash       xmss.HashFunction
	Signature  SignatureType
	Height     uint32
	AddrFormat AddrFormat
}

//New returns the descriptor of an XMSS key with SHA256_2X addresses.
//The descriptor stores height/2 in a nibble, so height must be even and at most 30.
func New(hash xmss.HashFunction, height uint32) (Descriptor, error) {
	if height&1 != 0 || height>>1 > nibble {
		return Descriptor{}, fmt.Errorf("%w: height %d", ErrInvalidDescriptor, height)
	}
	if hash > xmss.SHAKE_256 {
		return Descriptor{}, fmt.Errorf("%w: hash function %d", ErrInvalidDescriptor, hash)
	}
	return Descriptor{
		Hash:       hash,
		Signature:  XMSS,
		Height:     height,
		AddrFormat: SHA256_2X,
	}, nil
}

//FromKey returns the descriptor of k. Keys of odd height have none.
func FromKey(k *xmss.PrivateKey) (Descriptor, error) {
	return New(k.Params().Hash(), k.Height())
}

//FromBytes parses a 3 byte descriptor.
func FromBytes(b []byte) (Descriptor, error) {
	if len(b) != Size {
		return Descriptor{}, fmt.Errorf("%w: %d bytes", ErrInvalidDescriptor, len(b))
	}
	d := Descriptor{
		Hash:       xmss.HashFunction(b[0] & nibble),
		Signature:  SignatureType(b[0] >> 4),
		Height:     uint32(b[1]&nibble) << 1,
		AddrFormat: AddrFormat(b[1] >> 4),
	}
	if d.Hash > xmss.SHAKE_256 {
		return Descriptor{}, fmt.Errorf("%w: hash function %d", ErrInvalidDescriptor, d.Hash)
	}
	if d.Signature != XMSS {
		return Descriptor{}, fmt.Errorf("%w: signature type %d", ErrInvalidDescriptor, d.Signature)
	}
	return d, nil
}

//Bytes encodes the descriptor.
//byte0 is type<<4|hash, byte1 is format<<4|height/2, byte2 is reserved.
func (d Descriptor) Bytes() []byte {
	return []byte{
		byte(d.Signature)<<4 | byte(d.Hash)&nibble,
		byte(d.AddrFormat)<<4 | byte(d.Height>>1)&nibble,
		0,
	}
}

//Params returns the parameter set the descriptor stands for.
func (d Descriptor) Params() (*xmss.Params, error) {
	return xmss.DefaultParams(d.Hash, d.Height)
}

//ExtendedPublicKey returns descriptor || ROOT || PUB_SEED.
func ExtendedPublicKey(k *xmss.PrivateKey) ([]byte, error) {
	d, err := FromKey(k)
	if err != nil {
		return nil, err
	}
	epk := make([]byte, 0, ExtendedPKSize)
	epk = append(epk, d.Bytes()...)
	return append(epk, k.PublicKey()...), nil
}

//FromExtendedPublicKey returns the descriptor prefix of epk.
func FromExtendedPublicKey(epk []byte) (Descriptor, error) {
	if len(epk) != ExtendedPKSize {
		return Descriptor{}, fmt.Errorf("%w: extended public key of %d bytes", ErrInvalidDescriptor, len(epk))
	}
	return FromBytes(epk[:Size])
}

func sum256(b ...[]byte) []byte {
	h := sha256.New()
	for _, v := range b {
		h.Write(v)
	}
	return h.Sum(nil)
}

//Address derives the address of an extended public key.
func Address(epk []byte) ([]byte, error) {
	d, err := FromExtendedPublicKey(epk)
	if err != nil {
		return nil, err
	}
	if d.AddrFormat != SHA256_2X {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFormat, d.AddrFormat)
	}
	addr := make([]byte, 0, AddressSize)
	addr = append(addr, d.Bytes()...)
	addr = append(addr, sum256(epk)...)
	check := sum256(addr)
	return append(addr, check[addrHashSize-checksumSize:]...), nil
}

//AddressIsValid checks the length, descriptor and checksum of addr.
func AddressIsValid(addr []byte) bool {
	if len(addr) != AddressSize {
		return false
	}
	d, err := FromBytes(addr[:Size])
	if err != nil || d.AddrFormat != SHA256_2X {
		return false
	}
	check := sum256(addr[:Size+addrHashSize])
	for i := 0; i < checksumSize; i++ {
		if addr[Size+addrHashSize+i] != check[addrHashSize-checksumSize+i] {
			return false
		}
	}
	return true
}

//Verify checks sig over msg with the parameters named by epk's descriptor.
func Verify(msg, sig, epk []byte) bool {
	d, err := FromExtendedPublicKey(epk)
	if err != nil {
		return false
	}
	p, err := d.Params()
	if err != nil {
		return false
	}
	return xmss.Verify(p, msg, sig, epk[Size:])
}

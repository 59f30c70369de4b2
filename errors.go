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
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

var (
	//ErrInvalidParams is returned for an unsupported parameter set.
	ErrInvalidParams = errors.New("xmss: invalid parameters")
	//ErrInvalidSeed is returned when the key seed is not SeedSize bytes.
	ErrInvalidSeed = errors.New("xmss: invalid seed")
	//ErrIndexRewind is returned when the index would move backwards.
	ErrIndexRewind = errors.New("xmss: cannot rewind index")
	//ErrIndexTooHigh is returned when the index would pass the last leaf.
	ErrIndexTooHigh = errors.New("xmss: index too high")
	//ErrKeyExhausted is returned by Sign once every leaf has been used.
	ErrKeyExhausted = errors.New("xmss: key exhausted")
	//ErrInvalidSignature is returned for a signature of the wrong shape.
	ErrInvalidSignature = errors.New("xmss: invalid signature")
	//ErrInvalidKey is returned when decoding a damaged key.
	ErrInvalidKey = errors.New("xmss: invalid key")
	//ErrStateMismatch means the traversal state and the index disagree.
	ErrStateMismatch = errors.New("xmss: traversal state out of sync")
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

//SetLogger sets the logger used by the package. nil disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func log() *zap.Logger {
	return logger.Load()
}

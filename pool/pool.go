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

//Package pool pre-generates independent XMSS keys derived from a base seed.
package pool

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/AidosKuneen/numcpu"
	sha256 "github.com/AidosKuneen/sha256-simd"
	xmss "github.com/AidosKuneen/xmssfast"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

//ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("pool: closed")

//Config configures a Pool.
type Config struct {
	//BaseSeed is the seed every key seed is derived from.
	BaseSeed []byte
	Height   uint32
	Hash     xmss.HashFunction
	//StartIndex is the index of the first key handed out.
	StartIndex uint32
	//Size is the number of keys generated ahead.
	Size int
	//Workers defaults to the number of CPUs.
	Workers int
	Logger  *zap.Logger
	//Registerer receives the pool metrics when not nil.
	Registerer prometheus.Registerer
}

//DefaultConfig returns a config with SHAKE_128 keys and a cache of size keys.
func DefaultConfig(base []byte, height uint32, size int) Config {
	return Config{
		BaseSeed: base,
		Height:   height,
		Hash:     xmss.SHAKE_128,
		Size:     size,
	}
}

type future struct {
	index uint32
	done  chan struct{}
	key   *xmss.PrivateKey
	err   error
}

//Pool hands out keys in index order, generating up to Size of them ahead
//on worker goroutines.
type Pool struct {
	cfg     Config
	params  *xmss.Params
	log     *zap.Logger
	metrics *metrics

	mu     sync.Mutex
	cache  []*future
	index  uint32
	closed bool
	jobs   chan *future
	wg     sync.WaitGroup
}

//New starts a pool and fills its cache.
func New(cfg Config) (*Pool, error) {
	if len(cfg.BaseSeed) == 0 {
		return nil, errors.New("pool: empty base seed")
	}
	if cfg.Size < 0 {
		return nil, fmt.Errorf("pool: negative size %d", cfg.Size)
	}
	params, err := xmss.DefaultParams(cfg.Hash, cfg.Height)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = numcpu.NumCPU()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	p := &Pool{
		cfg:     cfg,
		params:  params,
		log:     cfg.Logger.With(zap.Stringer("params", params)),
		metrics: m,
		index:   cfg.StartIndex,
		jobs:    make(chan *future, cfg.Size),
	}
	for i := 0; i < cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	p.mu.Lock()
	p.fill()
	p.mu.Unlock()
	return p, nil
}

//ChildSeed is the 48 byte seed of key index:
//SHA256(hex(base) || decimal(index+1)) followed by its first 16 bytes.
func ChildSeed(base []byte, index uint32) []byte {
	h := sha256.New()
	h.Write([]byte(hex.EncodeToString(base) + strconv.FormatUint(uint64(index)+1, 10)))
	sum := h.Sum(nil)
	return append(sum, sum[:xmss.SeedSize-len(sum)]...)
}

func (p *Pool) generate(index uint32) (*xmss.PrivateKey, error) {
	start := time.Now()
	key, err := xmss.GenerateKeyPair(ChildSeed(p.cfg.BaseSeed, index), p.params)
	if err != nil {
		p.metrics.failed.Inc()
		p.log.Error("key generation failed", zap.Uint32("index", index), zap.Error(err))
		return nil, err
	}
	p.metrics.generated.Inc()
	p.metrics.duration.Observe(time.Since(start).Seconds())
	p.log.Debug("key generated",
		zap.Uint32("index", index),
		zap.Duration("elapsed", time.Since(start)))
	return key, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for f := range p.jobs {
		f.key, f.err = p.generate(f.index)
		close(f.done)
	}
}

//fill queues keys up to index+Size. p.mu must be held.
func (p *Pool) fill() {
	if p.closed {
		return
	}
	for len(p.cache) < p.cfg.Size {
		f := &future{
			index: p.index + uint32(len(p.cache)),
			done:  make(chan struct{}),
		}
		p.cache = append(p.cache, f)
		p.jobs <- f
	}
	p.metrics.depth.Set(float64(len(p.cache)))
}

//Next returns the key at the current index and moves to the next one.
//The caller owns the returned key. An index whose wait is cancelled is
//skipped.
func (p *Pool) Next(ctx context.Context) (*xmss.PrivateKey, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	var f *future
	if len(p.cache) > 0 {
		f = p.cache[0]
		p.cache[0] = nil
		p.cache = p.cache[1:]
	}
	index := p.index
	p.index++
	p.fill()
	p.mu.Unlock()

	if f == nil {
		return p.generate(index)
	}
	select {
	case <-f.done:
		return f.key, f.err
	case <-ctx.Done():
		p.log.Warn("gave up waiting for key", zap.Uint32("index", index), zap.Error(ctx.Err()))
		return nil, ctx.Err()
	}
}

//Available reports whether the next key is ready without waiting.
func (p *Pool) Available() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.cache) == 0 {
		return false
	}
	select {
	case <-p.cache[0].done:
		return true
	default:
		return false
	}
}

//CurrentIndex returns the index of the key Next returns.
func (p *Pool) CurrentIndex() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

//Close stops the workers after the queued keys are done.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

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

package pool

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	xmss "github.com/AidosKuneen/xmssfast"
	"github.com/AidosKuneen/xmssfast/descriptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

var poolVectors = []string{
	"0103002dcc3803df4475334b29eaa2516d1a9b36bc19eed0542cfbb501bf8de95d939b25510d9876c7845b4694441bdc0e2be51f3d3f87f0c7775893845f25d49f9ef1",
	"010300be9caeafe11fa52edf722063c18616d6d0c6c30dba3e2c9369a6d9260f76818bc424a1b6db5f26ef01ffa4aac8a08440d6a569bc56180b06f51b6ff6e4cc1b2e",
	"0103005deb91b1d311ecc8c6954e22f3e140ff3e6c04e40cad50c940e60abba3cf766a5db9f39f58e532bea6765e4530cb581db1d6afbb7c05da3261ca4db21177afc5",
	"010300ea15c686e7b9691b8bac52ee4d0ed33bd75ec600f55b4476b857858460c2c98390712040a5e03bca7a46715a90270ac2f8db8694ffa943091edb9018fa1dda04",
	"010300cc9aa42776ce6d286003055b793223002acb42f7e6c27773dabfd54960bb7d9d1dc356395528c65ff6f444aae130176c213718dd5c4a39858ca150031fb2451e",
}

func epkHex(t *testing.T, k *xmss.PrivateKey) string {
	t.Helper()
	epk, err := descriptor.ExtendedPublicKey(k)
	if err != nil {
		t.Fatal(err)
	}
	return hex.EncodeToString(epk)
}

func TestPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := DefaultConfig(make([]byte, 48), 6, 2)
	cfg.Logger = zaptest.NewLogger(t)
	cfg.Registerer = reg
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	for i, want := range poolVectors {
		if p.CurrentIndex() != uint32(i) {
			t.Error("incorrect current index", p.CurrentIndex())
		}
		k, err := p.Next(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got := epkHex(t, k); got != want {
			t.Errorf("key %d: %s", i, got)
		}
	}
	if got := testutil.ToFloat64(p.metrics.depth); got != 2 {
		t.Error("incorrect cache depth", got)
	}
	if testutil.ToFloat64(p.metrics.generated) < 5 {
		t.Error("generated keys must be counted")
	}
}

func TestPoolStartIndex(t *testing.T) {
	cfg := DefaultConfig(make([]byte, 48), 6, 1)
	cfg.StartIndex = 3
	cfg.Workers = 1
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer p.Close()
	for deadline := time.Now().Add(time.Minute); !p.Available(); {
		if time.Now().After(deadline) {
			t.Fatal("key never became available")
		}
		time.Sleep(10 * time.Millisecond)
	}
	k, err := p.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := epkHex(t, k); got != poolVectors[3] {
		t.Error("incorrect key at start index 3", got)
	}
}

func TestPoolWithoutCache(t *testing.T) {
	cfg := DefaultConfig(make([]byte, 48), 6, 0)
	cfg.StartIndex = 1
	p, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.Available() {
		t.Error("empty pool has nothing available")
	}
	k, err := p.Next(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := epkHex(t, k); got != poolVectors[1] {
		t.Error("incorrect key", got)
	}
	if p.CurrentIndex() != 2 {
		t.Error("incorrect current index", p.CurrentIndex())
	}
	p.Close()
	p.Close()
	if _, err := p.Next(context.Background()); !errors.Is(err, ErrClosed) {
		t.Error("closed pool must refuse", err)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(DefaultConfig(nil, 6, 1)); err == nil {
		t.Error("empty base seed must be refused")
	}
	if _, err := New(DefaultConfig(make([]byte, 48), 5, 1)); err == nil {
		t.Error("odd height must be refused")
	}
	if _, err := New(DefaultConfig(make([]byte, 48), 6, -1)); err == nil {
		t.Error("negative size must be refused")
	}
}

func TestChildSeed(t *testing.T) {
	s := ChildSeed([]byte{0xab}, 0)
	if len(s) != 48 {
		t.Fatal("incorrect seed size", len(s))
	}
	for i := 0; i < 16; i++ {
		if s[32+i] != s[i] {
			t.Fatal("seed must repeat its first 16 bytes")
		}
	}
	if cmpSeed := ChildSeed([]byte{0xab}, 1); string(cmpSeed) == string(s) {
		t.Error("indexes must give different seeds")
	}
}

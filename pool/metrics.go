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

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	generated prometheus.Counter
	failed    prometheus.Counter
	duration  prometheus.Histogram
	depth     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		generated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xmss_pool_keys_generated_total",
			Help: "Number of keys generated by the pool",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "xmss_pool_key_errors_total",
			Help: "Number of keys the pool failed to generate",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "xmss_pool_key_generation_seconds",
			Help:    "Time spent generating one key",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		depth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "xmss_pool_cache_depth",
			Help: "Number of keys queued or ready in the pool",
		}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.generated, m.failed, m.duration, m.depth} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package kernel

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "weaver"

// Metrics are the prometheus collectors of a kernel.
type Metrics struct {
	Weaves        *prometheus.CounterVec
	WeaveDuration prometheus.Histogram
	CacheHits     prometheus.Counter
	CacheMisses   prometheus.Counter
	ChainBuilds   prometheus.Counter
	Warnings      prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		Weaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "weaves_total",
			Help:      "Source units run through the transformer pipeline, by result.",
		}, []string{"result"}),
		WeaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "weave_duration_seconds",
			Help:      "Time spent transforming one source unit.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "artifact_cache_hits_total",
			Help:      "Woven artifacts served from the cache.",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "artifact_cache_misses_total",
			Help:      "Woven artifact lookups missing the cache.",
		}),
		ChainBuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chain_builds_total",
			Help:      "Interceptor chains built.",
		}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transform_warnings_total",
			Help:      "Constructs left unrewritten by a transformer.",
		}),
	}
}

// register registers every collector. Collectors already registered by an earlier kernel
// are adopted, so counts keep accumulating.
func (m *Metrics) register(r prometheus.Registerer) error {
	if r == nil {
		return nil
	}
	var err error
	if m.Weaves, err = adopt(r, m.Weaves); err != nil {
		return err
	}
	if m.WeaveDuration, err = adopt(r, m.WeaveDuration); err != nil {
		return err
	}
	if m.CacheHits, err = adopt(r, m.CacheHits); err != nil {
		return err
	}
	if m.CacheMisses, err = adopt(r, m.CacheMisses); err != nil {
		return err
	}
	if m.ChainBuilds, err = adopt(r, m.ChainBuilds); err != nil {
		return err
	}
	m.Warnings, err = adopt(r, m.Warnings)
	return err
}

func adopt[T prometheus.Collector](r prometheus.Registerer, c T) (T, error) {
	if err := r.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

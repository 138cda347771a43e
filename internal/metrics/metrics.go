// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package metrics collects and exposes Prometheus metrics for the cache and
// remote store traffic of the sync core.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the synchronizers and the local cache report to.
type Recorder interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheCorrupt(key string)
	RemoteCall(op string, err error, took time.Duration)
	CommentsDegraded(mode string)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	cacheLookups   *prometheus.CounterVec
	cacheCorrupt   *prometheus.CounterVec
	remoteCalls    *prometheus.CounterVec
	remoteLatency  *prometheus.HistogramVec
	commentsDegrad *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technexus_local_cache_lookups_total",
			Help: "Local cache lookups by key and result.",
		}, []string{"key", "result"}),
		cacheCorrupt: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technexus_local_cache_corrupt_total",
			Help: "Local cache values that failed to parse.",
		}, []string{"key"}),
		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technexus_remote_calls_total",
			Help: "Remote store calls by operation and outcome.",
		}, []string{"op", "outcome"}),
		remoteLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "technexus_remote_call_seconds",
			Help:    "Remote store call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
		commentsDegrad: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "technexus_comment_list_degraded_total",
			Help: "Comment listings that failed and were served empty.",
		}, []string{"mode"}),
	}

	reg.MustRegister(
		c.cacheLookups,
		c.cacheCorrupt,
		c.remoteCalls,
		c.remoteLatency,
		c.commentsDegrad,
	)
	return c
}

// CacheHit records a non-empty cache read.
func (c *Collector) CacheHit(key string) {
	c.cacheLookups.WithLabelValues(key, "hit").Inc()
}

// CacheMiss records an empty or absent cache read.
func (c *Collector) CacheMiss(key string) {
	c.cacheLookups.WithLabelValues(key, "miss").Inc()
}

// CacheCorrupt records a value that failed to parse.
func (c *Collector) CacheCorrupt(key string) {
	c.cacheCorrupt.WithLabelValues(key).Inc()
}

// RemoteCall records the outcome and latency of one remote store call.
func (c *Collector) RemoteCall(op string, err error, took time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.remoteCalls.WithLabelValues(op, outcome).Inc()
	c.remoteLatency.WithLabelValues(op).Observe(took.Seconds())
}

// CommentsDegraded records a comment listing served empty after a failure.
func (c *Collector) CommentsDegraded(mode string) {
	c.commentsDegrad.WithLabelValues(mode).Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) CacheHit(string)                         {}
func (Nop) CacheMiss(string)                        {}
func (Nop) CacheCorrupt(string)                     {}
func (Nop) RemoteCall(string, error, time.Duration) {}
func (Nop) CommentsDegraded(string)                 {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

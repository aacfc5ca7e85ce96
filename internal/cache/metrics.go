package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doordash_cache_hits_total",
		Help: "Total response cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "doordash_cache_misses_total",
		Help: "Total response cache misses (including corrupt entries)",
	})
)

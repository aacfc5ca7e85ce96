package doordash

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doordash_pages_fetched_total",
		Help: "Order history pages fetched by source (network, cache, error)",
	}, []string{"source"})

	apiErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "doordash_api_errors_total",
		Help: "Fatal API response errors by class",
	}, []string{"class"})
)

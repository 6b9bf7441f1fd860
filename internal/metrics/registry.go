// Package metrics provides Prometheus metrics for the blob gateway and the
// HTTP layer.
//
// All metrics are optional. If InitRegistry is never called the constructors
// return nil and components fall back to their no-op implementations.
//
// Usage:
//
//	metrics.InitRegistry()
//	blobs := blobstore.NewInstrumented(store, timeout, metrics.NewBlobMetrics())
//	mux.Handle("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filespace"

var (
	// registry is written once by InitRegistry and read many times after
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry with the Go
// runtime and process collectors. Subsequent calls are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// GetRegistry returns the global registry, or nil when metrics are disabled.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Handler serves the registry in the Prometheus text format. It answers 404
// when metrics are disabled.
func Handler() http.Handler {
	if !IsEnabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

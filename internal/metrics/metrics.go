package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch and render metrics. Defined in a standalone package to avoid
// import cycles between the pipeline, the render engine and HTTP packages.

var (
	RenderCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailroom_render_cache_hits_total",
		Help: "Hits del render cache",
	})

	RenderCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailroom_render_cache_misses_total",
		Help: "Misses del render cache",
	})

	TemplateCompiles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailroom_template_compiles_total",
		Help: "Compilaciones de templates (no servidas desde cache)",
	})

	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mailroom_dispatch_total",
		Help: "Despachos por estado terminal",
	}, []string{"status"})

	DispatchRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mailroom_dispatch_retries_total",
		Help: "Reintentos de entrega (no cuenta el primer intento)",
	})

	DispatchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mailroom_dispatch_duration_seconds",
		Help:    "Duración del despacho completo en segundos",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
	})
)

// Register registers the mailroom metrics on the given registry (or default if nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		RenderCacheHits,
		RenderCacheMisses,
		TemplateCompiles,
		DispatchTotal,
		DispatchRetries,
		DispatchDuration,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Signals pulled off the ingest buses"},
		[]string{"kind"},
	)
	UpdatesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signal_updates_rejected_total", Help: "Signal updates rejected by the store"},
		[]string{"reason"},
	)
	StalenessSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trigger_staleness_skips_total", Help: "Evaluations declined because a dependency was older than its max age"},
		[]string{"trigger"},
	)
	CooldownSkipsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trigger_cooldown_skips_total", Help: "Evaluations declined because the trigger was cooling down"},
		[]string{"trigger"},
	)
	EventsEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "events_emitted_total", Help: "Events handed to the output transport"},
		[]string{"kind"},
	)
	EmitterEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "emitter_evictions_total", Help: "Events evicted under backpressure"},
	)
	EmitterDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "emitter_depth", Help: "Events currently queued in the emitter"},
	)
	DecodeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "decode_errors_total", Help: "Frames a bus failed to decode"},
		[]string{"bus"},
	)
	PublishFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "publish_failures_total", Help: "Output transport publish attempts that failed"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsTotal,
		UpdatesRejectedTotal,
		StalenessSkipsTotal,
		CooldownSkipsTotal,
		EventsEmittedTotal,
		EmitterEvictionsTotal,
		EmitterDepth,
		DecodeErrorsTotal,
		PublishFailuresTotal,
	)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

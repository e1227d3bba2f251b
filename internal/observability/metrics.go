package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveConversations prometheus.Gauge
	TurnsTotal          *prometheus.CounterVec
	SnippetsSelected    *prometheus.CounterVec
	PromptTokens        prometheus.Histogram
	GenerationLatency   prometheus.Histogram
	ProviderErrors      *prometheus.CounterVec
	SweepEvictions      prometheus.Counter
	WSMessages          *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConversations: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conversations",
			Help:      "Number of conversations currently held in the memory cache.",
		}),
		TurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Handled turns by outcome.",
		}, []string{"outcome"}),
		SnippetsSelected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snippets_selected_total",
			Help:      "Snippets woven into prompts, by cycle phase.",
		}, []string{"phase"}),
		PromptTokens: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_tokens",
			Help:      "Estimated token count of assembled prompts.",
			Buckets:   []float64{200, 400, 600, 800, 1000, 1200, 1500, 2000},
		}),
		GenerationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Latency of the generation backend call in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 1500, 2500, 4000, 8000},
		}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Generation backend errors by failure class.",
		}, []string{"class"}),
		SweepEvictions: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_evictions_total",
			Help:      "Conversation records evicted by the TTL sweep.",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func (m *Metrics) ObserveGenerationLatency(d time.Duration) {
	m.GenerationLatency.Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

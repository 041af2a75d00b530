package multiblock

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — Prometheus-метрики координатора. Нулевой указатель допустим:
// все методы тогда ничего не делают.
type Metrics struct {
	live              *prometheus.GaugeVec
	formed            prometheus.Counter
	splits            prometheus.Counter
	merges            prometheus.Counter
	removed           prometheus.Counter
	roundCapHits      prometheus.Counter
	integrityFailures prometheus.Counter
	eventDuration     *prometheus.HistogramVec
}

// NewMetrics создаёт метрики и регистрирует их в reg (если он не nil)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		live: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "multiblock",
			Name:      "structures_live",
			Help:      "Число живых структур по мирам.",
		}, []string{"world"}),
		formed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiblock",
			Name:      "structures_formed_total",
			Help:      "Созданные структуры 1x1x1.",
		}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiblock",
			Name:      "splits_total",
			Help:      "Разбиения структур после потери целостности.",
		}),
		merges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiblock",
			Name:      "merges_total",
			Help:      "Успешные слияния структур.",
		}),
		removed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiblock",
			Name:      "structures_removed_total",
			Help:      "Структуры, исчезнувшие без фрагментов.",
		}),
		roundCapHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiblock",
			Name:      "merge_round_cap_hits_total",
			Help:      "Сколько раз цикл слияния упёрся в лимит раундов.",
		}),
		integrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "multiblock",
			Name:      "integrity_failures_total",
			Help:      "Проваленные проверки целостности.",
		}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "multiblock",
			Name:      "event_duration_seconds",
			Help:      "Длительность обработки событий сетки.",
			Buckets:   []float64{.00005, .0001, .0005, .001, .005, .01, .05},
		}, []string{"event"}),
	}

	if reg != nil {
		reg.MustRegister(m.live, m.formed, m.splits, m.merges, m.removed,
			m.roundCapHits, m.integrityFailures, m.eventDuration)
	}
	return m
}

func (m *Metrics) setLive(world WorldID, n int) {
	if m != nil {
		m.live.WithLabelValues(string(world)).Set(float64(n))
	}
}

func (m *Metrics) incFormed() {
	if m != nil {
		m.formed.Inc()
	}
}

func (m *Metrics) incSplit() {
	if m != nil {
		m.splits.Inc()
	}
}

func (m *Metrics) incMerge() {
	if m != nil {
		m.merges.Inc()
	}
}

func (m *Metrics) incRemoved() {
	if m != nil {
		m.removed.Inc()
	}
}

func (m *Metrics) incRoundCap() {
	if m != nil {
		m.roundCapHits.Inc()
	}
}

func (m *Metrics) incIntegrityFailure() {
	if m != nil {
		m.integrityFailures.Inc()
	}
}

func (m *Metrics) observe(event string, seconds float64) {
	if m != nil {
		m.eventDuration.WithLabelValues(event).Observe(seconds)
	}
}

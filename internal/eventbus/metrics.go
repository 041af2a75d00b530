package eventbus

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter раз в interval переносит Stats шины в Prometheus.
// Работает с любой реализацией EventBus.
type MetricsExporter struct {
	bus      EventBus
	interval time.Duration
	quit     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	published prometheus.Counter
	consumed  prometheus.Counter
	dropped   prometheus.Counter
	inflight  prometheus.Gauge

	prev Stats
}

// NewMetricsExporter создаёт экспортер и регистрирует метрики в reg
// (nil означает глобальный регистр Prometheus). Обновление запускает Start.
func NewMetricsExporter(bus EventBus, reg prometheus.Registerer) *MetricsExporter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "structure_events", Name: name, Help: help,
		})
	}
	me := &MetricsExporter{
		bus:       bus,
		interval:  time.Second,
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		published: counter("published_total", "События структур, принятые шиной."),
		consumed:  counter("consumed_total", "Доставки событий подписчикам."),
		dropped:   counter("dropped_total", "События, потерянные при переполнении или ошибке отправки."),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "structure_events",
			Name:      "queued",
			Help:      "События в очереди шины.",
		}),
	}
	reg.MustRegister(me.published, me.consumed, me.dropped, me.inflight)
	return me
}

// Start запускает фоновое обновление метрик. Метод неблокирующий.
func (m *MetricsExporter) Start() {
	if m.started.CompareAndSwap(false, true) {
		go m.loop()
	}
}

// Stop останавливает обновление метрик
func (m *MetricsExporter) Stop() {
	if !m.started.Load() {
		return
	}
	m.stopOnce.Do(func() {
		close(m.quit)
		<-m.done
	})
}

func addDelta(c prometheus.Counter, now, prev uint64) {
	if now > prev {
		c.Add(float64(now - prev))
	}
}

// Collect снимает Stats шины; счётчики растут на разницу с прошлым снятием
func (m *MetricsExporter) Collect() {
	stats := m.bus.Metrics()
	addDelta(m.published, stats.Published, m.prev.Published)
	addDelta(m.consumed, stats.Consumed, m.prev.Consumed)
	addDelta(m.dropped, stats.Dropped, m.prev.Dropped)
	m.inflight.Set(float64(stats.InFlight))
	m.prev = stats
}

func (m *MetricsExporter) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer close(m.done)

	for {
		select {
		case <-ticker.C:
			m.Collect()
		case <-m.quit:
			m.Collect()
			return
		}
	}
}

package eventbus

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ErrBusClosed возвращается при публикации в закрытую шину
var ErrBusClosed = errors.New("event bus is closed")

// Приоритеты событий. При переполненном буфере события ниже PriorityHigh отбрасываются.
const (
	PriorityNormal = 3
	PriorityHigh   = 5
)

// Envelope — контейнер события, общий для всех реализаций шины
type Envelope struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"` // UTC
	Source        string            `json:"source"`
	EventType     string            `json:"event_type"` // structure.formed, structure.split...
	Version       int               `json:"version"`    // Версия схемы Payload
	CorrelationID string            `json:"correlation_id,omitempty"`
	Priority      int               `json:"priority"`
	Payload       []byte            `json:"payload"` // JSON
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Filter ограничивает подписку типами и источниками; пустой список пропускает всё
type Filter struct {
	Types   []string
	Sources []string
}

func (f Filter) matches(ev *Envelope) bool {
	return (len(f.Types) == 0 || slices.Contains(f.Types, ev.EventType)) &&
		(len(f.Sources) == 0 || slices.Contains(f.Sources, ev.Source))
}

// Subscription позволяет отписаться
type Subscription interface {
	Unsubscribe()
}

// Handler потребляет события
type Handler func(ctx context.Context, ev *Envelope)

// Stats — счётчики шины
type Stats struct {
	Published uint64
	Consumed  uint64
	Dropped   uint64
	InFlight  int
}

// EventBus — шина событий структур
type EventBus interface {
	Publish(ctx context.Context, ev *Envelope) error
	Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error)
	Metrics() Stats
	Close() error
}

// memoryBus доставляет события внутри процесса: один цикл рассылки,
// по горутине на доставку подписчику.
type memoryBus struct {
	subMu  sync.RWMutex
	subs   map[uint64]*memSub
	nextID uint64

	// gate держится на чтение во время отправки в queue; Close берёт на запись
	gate   sync.RWMutex
	closed bool
	queue  chan *Envelope
	inWork sync.WaitGroup

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

// NewMemoryBus создаёт шину в памяти с очередью на capacity событий
func NewMemoryBus(capacity int) EventBus {
	b := &memoryBus{
		subs:  make(map[uint64]*memSub),
		queue: make(chan *Envelope, max(capacity, 1)),
	}
	b.inWork.Add(1)
	go b.run()
	return b
}

func (b *memoryBus) Publish(ctx context.Context, ev *Envelope) error {
	b.gate.RLock()
	defer b.gate.RUnlock()
	if b.closed {
		return ErrBusClosed
	}

	select {
	case b.queue <- ev:
		b.published.Add(1)
		return nil
	default:
	}

	if ev.Priority < PriorityHigh {
		b.dropped.Add(1)
		return nil
	}
	select {
	case b.queue <- ev:
		b.published.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *memoryBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	sctx, cancel := context.WithCancel(ctx)

	b.subMu.Lock()
	defer b.subMu.Unlock()
	b.nextID++
	sub := &memSub{bus: b, id: b.nextID, filter: f, handler: h, ctx: sctx, cancel: cancel}
	b.subs[sub.id] = sub
	return sub, nil
}

func (b *memoryBus) Metrics() Stats {
	return Stats{
		Published: b.published.Load(),
		Consumed:  b.consumed.Load(),
		Dropped:   b.dropped.Load(),
		InFlight:  len(b.queue),
	}
}

// Close перестаёт принимать события и ждёт доставки уже принятых
func (b *memoryBus) Close() error {
	b.gate.Lock()
	if b.closed {
		b.gate.Unlock()
		return nil
	}
	b.closed = true
	close(b.queue)
	b.gate.Unlock()

	b.inWork.Wait()
	return nil
}

func (b *memoryBus) snapshotSubs() []*memSub {
	b.subMu.RLock()
	defer b.subMu.RUnlock()
	out := make([]*memSub, 0, len(b.subs))
	for _, s := range b.subs {
		out = append(out, s)
	}
	return out
}

func (b *memoryBus) run() {
	defer b.inWork.Done()

	for ev := range b.queue {
		for _, sub := range b.snapshotSubs() {
			if !sub.filter.matches(ev) {
				continue
			}
			b.inWork.Add(1)
			go b.deliver(sub, ev)
		}
	}
}

func (b *memoryBus) deliver(sub *memSub, ev *Envelope) {
	defer b.inWork.Done()
	if sub.ctx.Err() != nil {
		return
	}
	sub.handler(sub.ctx, ev)
	b.consumed.Add(1)
}

type memSub struct {
	bus     *memoryBus
	id      uint64
	filter  Filter
	handler Handler
	ctx     context.Context
	cancel  context.CancelFunc
}

func (s *memSub) Unsubscribe() {
	s.bus.subMu.Lock()
	delete(s.bus.subs, s.id)
	s.bus.subMu.Unlock()
	s.cancel()
}

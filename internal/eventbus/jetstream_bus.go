package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	nats "github.com/nats-io/nats.go"
)

// DefaultStream — стрим структурных событий по умолчанию
const DefaultStream = "STRUCTURES"

const ackWait = 30 * time.Second

// JetStreamBus — EventBus поверх NATS JetStream.
// Событие типа T уходит в subject "<stream в нижнем регистре>.T".
type JetStreamBus struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	prefix string

	published atomic.Uint64
	consumed  atomic.Uint64
	dropped   atomic.Uint64
}

var _ EventBus = (*JetStreamBus)(nil)

// NewJetStreamBus подключается к NATS и создаёт стрим, если его ещё нет
func NewJetStreamBus(url, stream string, retention time.Duration) (*JetStreamBus, error) {
	if stream == "" {
		stream = DefaultStream
	}
	bus := &JetStreamBus{stream: stream, prefix: strings.ToLower(stream)}

	conn, err := nats.Connect(url, nats.Name("foodcraft-multiblock"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	bus.conn = conn

	if bus.js, err = conn.JetStream(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if err := bus.ensureStream(retention); err != nil {
		conn.Close()
		return nil, err
	}
	return bus, nil
}

func (jb *JetStreamBus) ensureStream(retention time.Duration) error {
	if _, err := jb.js.StreamInfo(jb.stream); err == nil {
		return nil
	}
	_, err := jb.js.AddStream(&nats.StreamConfig{
		Name:      jb.stream,
		Subjects:  []string{jb.wildcard()},
		Retention: nats.LimitsPolicy,
		MaxAge:    retention,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("add stream %s: %w", jb.stream, err)
	}
	return nil
}

func (jb *JetStreamBus) wildcard() string {
	return jb.prefix + ".>"
}

func (jb *JetStreamBus) subject(eventType string) string {
	return jb.prefix + "." + eventType
}

// Publish пишет Envelope в стрим; ID события служит ключом дедупликации
func (jb *JetStreamBus) Publish(ctx context.Context, ev *Envelope) error {
	data, err := json.Marshal(ev)
	if err == nil {
		_, err = jb.js.Publish(jb.subject(ev.EventType), data, nats.Context(ctx), nats.MsgId(ev.ID))
	}
	if err != nil {
		jb.dropped.Add(1)
		return fmt.Errorf("publish %s: %w", ev.EventType, err)
	}
	jb.published.Add(1)
	return nil
}

// Subscribe создаёт durable consumer. Фильтр с единственным типом сужает subject,
// остальные условия проверяются на стороне клиента.
func (jb *JetStreamBus) Subscribe(ctx context.Context, f Filter, h Handler) (Subscription, error) {
	subj := jb.wildcard()
	if len(f.Types) == 1 {
		subj = jb.subject(f.Types[0])
	}

	sub, err := jb.js.Subscribe(subj, func(msg *nats.Msg) {
		defer func() { _ = msg.Ack() }()

		var ev Envelope
		if err := json.Unmarshal(msg.Data, &ev); err != nil || !f.matches(&ev) {
			return
		}
		h(ctx, &ev)
		jb.consumed.Add(1)
	}, nats.ManualAck(), nats.Durable("sub_"+uuid.NewString()[:8]), nats.AckWait(ackWait))
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subj, err)
	}
	return natsSubscription{sub}, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s natsSubscription) Unsubscribe() {
	_ = s.sub.Unsubscribe()
}

// Metrics возвращает счётчики; очередью владеет сервер NATS, поэтому InFlight всегда 0
func (jb *JetStreamBus) Metrics() Stats {
	return Stats{
		Published: jb.published.Load(),
		Consumed:  jb.consumed.Load(),
		Dropped:   jb.dropped.Load(),
	}
}

// Close дренирует подписки и закрывает соединение
func (jb *JetStreamBus) Close() error {
	return jb.conn.Drain()
}

package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/666daji/Food-Craft-sub000/internal/multiblock"
)

// StructureEventVersion — версия схемы полезной нагрузки структурных событий
const StructureEventVersion = 1

// StructurePublisher публикует события координатора структур в шину
type StructurePublisher struct {
	bus    EventBus
	source string
}

var _ multiblock.EventPublisher = (*StructurePublisher)(nil)

// NewStructurePublisher создаёт издателя; source попадает в Envelope.Source
func NewStructurePublisher(bus EventBus, source string) *StructurePublisher {
	if source == "" {
		source = "multiblock"
	}
	return &StructurePublisher{bus: bus, source: source}
}

// PublishStructureEvent реализует multiblock.EventPublisher
func (p *StructurePublisher) PublishStructureEvent(ctx context.Context, ev multiblock.StructureEvent) error {
	env, err := NewStructureEnvelope(p.source, ev)
	if err != nil {
		return err
	}
	return p.bus.Publish(ctx, env)
}

// NewStructureEnvelope упаковывает событие структуры в Envelope
func NewStructureEnvelope(source string, ev multiblock.StructureEvent) (*Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind, err)
	}

	priority := PriorityNormal
	if ev.Kind == multiblock.EventRemoved {
		priority = PriorityHigh
	}

	return &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		EventType: string(ev.Kind),
		Version:   StructureEventVersion,
		Priority:  priority,
		Payload:   payload,
		Metadata: map[string]string{
			"world":     string(ev.World),
			"cell_type": ev.CellTypeID,
		},
	}, nil
}

// DecodeStructureEvent распаковывает событие структуры из Envelope
func DecodeStructureEvent(env *Envelope) (multiblock.StructureEvent, error) {
	var ev multiblock.StructureEvent
	if env == nil {
		return ev, fmt.Errorf("decode structure event: nil envelope")
	}
	if env.Version > StructureEventVersion {
		return ev, fmt.Errorf("decode structure event: unsupported version %d", env.Version)
	}
	if err := json.Unmarshal(env.Payload, &ev); err != nil {
		return ev, fmt.Errorf("decode structure event %s: %w", env.ID, err)
	}
	return ev, nil
}

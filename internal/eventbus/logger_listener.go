package eventbus

import (
	"context"

	"github.com/666daji/Food-Craft-sub000/internal/logging"
)

// StartLoggingListener подписывается на все события и пишет их в лог шины.
// Функция неблокирующая.
func StartLoggingListener(ctx context.Context, bus EventBus) (Subscription, error) {
	log := logging.GetComponentLogger("eventbus")
	sub, err := bus.Subscribe(ctx, Filter{}, func(ctx context.Context, env *Envelope) {
		ev, err := DecodeStructureEvent(env)
		if err != nil {
			log.Debug("%s %s src=%s prio=%d size=%dB", env.ID, env.EventType, env.Source, env.Priority, len(env.Payload))
			return
		}
		log.Debug("%s %s world=%s type=%s sources=%d results=%d",
			env.ID, ev.Kind, ev.World, ev.CellTypeID, len(ev.Sources), len(ev.Results))
	})
	if err != nil {
		return nil, err
	}
	log.Info("logging listener subscribed to all events")
	return sub, nil
}

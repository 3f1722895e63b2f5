package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/superfeelapi/goLiveBridge/foundation/external/mqtt"
	"github.com/superfeelapi/goLiveBridge/foundation/pubsub"
	"github.com/superfeelapi/goLiveBridge/foundation/state"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// RedisPublisher publishes a payload on a channel suffix.
type RedisPublisher interface {
	Publish(ctx context.Context, suffix string, payload []byte) error
}

type Settings struct {
	Broker      *pubsub.Broker
	MQTT        mqtt.Publisher
	Redis       RedisPublisher
	TopicPrefix string
	State       *state.State
	Logger      *zap.SugaredLogger
	Capacity    int
}

// Dispatcher forwards broker events to the configured sinks. A sink that
// fails is switched off for the rest of the process lifetime.
type Dispatcher struct {
	broker *pubsub.Broker
	mqtt   mqtt.Publisher
	redis  RedisPublisher
	prefix string
	state  *state.State
	logger *zap.SugaredLogger

	sub  *pubsub.Subscriber
	wg   sync.WaitGroup
	shut chan struct{}
	once sync.Once
}

func Run(s Settings) *Dispatcher {
	st := s.State
	if st == nil {
		st = state.NewState()
	}

	d := &Dispatcher{
		broker: s.Broker,
		mqtt:   s.MQTT,
		redis:  s.Redis,
		prefix: s.TopicPrefix,
		state:  st,
		logger: s.Logger,
		sub:    pubsub.NewSubscriber(s.Capacity),
		shut:   make(chan struct{}),
	}

	for _, topic := range Topics {
		d.broker.Subscribe(topic, d.sub)
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.dispatchOperation()
	}()

	return d
}

// Shutdown forwards what is already queued and stops the dispatcher.
func (d *Dispatcher) Shutdown() {
	d.once.Do(func() {
		d.logger.Infow("events: shutdown: started")
		defer d.logger.Infow("events: shutdown: completed")

		close(d.shut)
		d.wg.Wait()
		d.broker.Close(d.sub)
	})
}

func (d *Dispatcher) dispatchOperation() {
	d.logger.Infow("events: dispatchOperation: G started")
	defer d.logger.Infow("events: dispatchOperation: G completed")

	for {
		select {
		case data, ok := <-d.sub.GetChannel():
			if !ok {
				return
			}
			d.forward(data)

		case <-d.shut:
			d.logger.Infow("events: dispatchOperation: received shut signal")
			for {
				select {
				case data := <-d.sub.GetChannel():
					d.forward(data)
				default:
					return
				}
			}
		}
	}
}

// =====================================================================================================================

func (d *Dispatcher) forward(data any) {
	ev, ok := data.(Event)
	if !ok {
		d.logger.Warnw("events: forward: unexpected payload", "type", data)
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		d.logger.Errorw("events: forward: marshal", "ERROR", err, "ucid", ev.UCID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if d.mqtt != nil && d.state.Allow(state.MQTT) {
		err := d.mqtt.Publish(ctx, mqtt.Topic(d.prefix, ev.UCID, ev.Name()), payload)
		d.report(state.MQTT, err, ev.UCID)
	}

	if d.redis != nil && d.state.Allow(state.Redis) {
		err := d.redis.Publish(ctx, ev.Type, payload)
		d.report(state.Redis, err, ev.UCID)
	}
}

func (d *Dispatcher) report(svc state.Service, err error, ucid string) {
	changed := d.state.Report(svc, err)

	switch {
	case err == nil && changed:
		d.logger.Infow("events: forward: sink recovered", "sink", svc.String())
	case err != nil && changed:
		d.logger.Errorw("events: forward: sink switched off", "sink", svc.String(), "ERROR", err, "ucid", ucid)
	case err != nil:
		d.logger.Warnw("events: forward: sink still failing", "sink", svc.String(), "ERROR", err, "ucid", ucid)
	}
}

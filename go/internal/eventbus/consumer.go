package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

const eventChannelBufferSize = 100

// ConsumerConfig describes a durable consumer on the event stream.
type ConsumerConfig struct {
	Name          string
	EventTypes    []string // empty means every event
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
	Workers       int
}

// HandlerFunc processes one event. Returning an error naks the message so it
// is redelivered.
type HandlerFunc func(ctx context.Context, env Envelope) error

// Consumer feeds JetStream messages to a handler through a worker pool.
type Consumer struct {
	consumer jetstream.Consumer
	handler  HandlerFunc
	workers  int
}

// NewConsumer gets or creates the durable consumer described by cc.
func NewConsumer(ctx context.Context, js jetstream.JetStream, cfg Config, cc ConsumerConfig, handler HandlerFunc) (*Consumer, error) {
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		return nil, fmt.Errorf("get stream: %w", err)
	}

	consumerConfig := jetstream.ConsumerConfig{
		Name:          cc.Name,
		Durable:       cc.Name,
		Description:   "Jeopardy event consumer",
		DeliverPolicy: jetstream.DeliverAllPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    cc.MaxDeliver,
		AckWait:       cc.AckWait,
		MaxAckPending: cc.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	}
	switch len(cc.EventTypes) {
	case 0:
		consumerConfig.FilterSubject = cfg.SubjectPrefix + ".>"
	case 1:
		consumerConfig.FilterSubject = cfg.Subject(cc.EventTypes[0])
	default:
		for _, t := range cc.EventTypes {
			consumerConfig.FilterSubjects = append(consumerConfig.FilterSubjects, cfg.Subject(t))
		}
	}

	consumer, err := stream.Consumer(ctx, cc.Name)
	if err != nil {
		consumer, err = stream.CreateConsumer(ctx, consumerConfig)
		if err != nil {
			return nil, fmt.Errorf("create consumer: %w", err)
		}
		log.Info().Str("consumer", cc.Name).Msg("created JetStream consumer")
	} else {
		log.Info().Str("consumer", cc.Name).Msg("using existing JetStream consumer")
	}

	workers := cc.Workers
	if workers < 1 {
		workers = 1
	}
	return &Consumer{consumer: consumer, handler: handler, workers: workers}, nil
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	eventCh := make(chan jetstream.Msg, eventChannelBufferSize)

	consumeCtx, err := c.consumer.Consume(func(msg jetstream.Msg) {
		select {
		case eventCh <- msg:
		case <-ctx.Done():
			_ = msg.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("start JetStream consumer: %w", err)
	}
	defer consumeCtx.Stop()

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-eventCh:
					c.dispatch(ctx, msg)
				}
			}
		}(i)
	}
	log.Info().Int("workers", c.workers).Msg("event consumer started")

	<-ctx.Done()
	wg.Wait()
	log.Info().Msg("event consumer stopped")
	return nil
}

// dispatch acks handled messages, naks failed ones and terminates messages
// that cannot be decoded.
func (c *Consumer) dispatch(ctx context.Context, msg jetstream.Msg) {
	var env Envelope
	if err := json.Unmarshal(msg.Data(), &env); err != nil {
		log.Error().Err(err).Str("subject", msg.Subject()).Msg("dropping undecodable event")
		_ = msg.Term()
		return
	}

	log.Debug().
		Str("subject", msg.Subject()).
		Str("room_id", env.RoomID).
		Str("event_type", env.EventType).
		Msg("processing event")

	if err := c.handler(ctx, env); err != nil {
		log.Error().Err(err).Str("event_id", env.EventID).Str("event_type", env.EventType).Msg("failed to process event")
		_ = msg.Nak()
		return
	}
	_ = msg.Ack()
}

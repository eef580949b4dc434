package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/events"
)

// Producer publishes conversation events to a Kafka topic without waiting for
// broker acknowledgements. Events for the same conversation share a key so they
// land on one partition in order. Delivery failures are logged and counted.
type Producer struct {
	async    sarama.AsyncProducer
	topic    string
	log      *zerolog.Logger
	failures atomic.Int64
	done     chan struct{}
}

var _ events.Publisher = (*Producer)(nil)

// NewConfig returns the producer configuration: idempotent, acked by all replicas.
func NewConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.Return.Errors = true
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewProducer connects an asynchronous producer to the brokers.
func NewProducer(brokers []string, clientID, topic string, logger *zerolog.Logger) (*Producer, error) {
	async, err := sarama.NewAsyncProducer(brokers, NewConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewWithAsyncProducer(async, topic, logger), nil
}

// NewWithAsyncProducer wraps an existing producer. The producer must report errors.
func NewWithAsyncProducer(async sarama.AsyncProducer, topic string, logger *zerolog.Logger) *Producer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	p := &Producer{
		async: async,
		topic: topic,
		log:   logger,
		done:  make(chan struct{}),
	}
	go p.drainErrors()
	return p
}

// Publish encodes the event as JSON and queues it. It only blocks while the
// producer's input buffer is full, and gives up when ctx is done.
func (p *Producer) Publish(ctx context.Context, ev events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.ConversationKey()),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(ev.Type)},
		},
	}
	select {
	case p.async.Input() <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue %s: %w", ev.Type, ctx.Err())
	}
}

// Failures reports how many queued events the brokers rejected.
func (p *Producer) Failures() int64 {
	return p.failures.Load()
}

// Close flushes queued events and closes the underlying producer.
func (p *Producer) Close() error {
	if p == nil || p.async == nil {
		return nil
	}
	p.async.AsyncClose()
	<-p.done
	return nil
}

func (p *Producer) drainErrors() {
	defer close(p.done)
	for perr := range p.async.Errors() {
		p.failures.Add(1)
		ev := p.log.Warn().Err(perr.Err).Str("topic", p.topic)
		if perr.Msg != nil && perr.Msg.Key != nil {
			if key, err := perr.Msg.Key.Encode(); err == nil {
				ev = ev.Str("key", string(key))
			}
		}
		ev.Msg("kafka delivery failed")
	}
}

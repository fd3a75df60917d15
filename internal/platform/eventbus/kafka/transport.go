// Package kafka carries domain events between processes over a Kafka topic.
// Events travel as events.Envelope JSON; consumed events are handed to the
// local dispatcher before their offsets are committed.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"hrdms/internal/events"
	"hrdms/internal/platform/eventbus"
	"hrdms/pkg/platform/circuit"
)

const headerEventName = "event-name"

// Dispatcher runs local subscribers for one event and returns when they are
// done.
type Dispatcher interface {
	Dispatch(ctx context.Context, e events.Event)
}

type Config struct {
	Brokers           []string
	Topic             string
	Group             string
	Partitions        int32
	ReplicationFactor int16
	DeliveryTimeout   time.Duration
}

// Transport publishes to and consumes from one topic. While the broker is
// failing, Publish hands events to the fallback publisher instead.
type Transport struct {
	client   *kgo.Client
	topic    string
	cfg      Config
	local    Dispatcher
	fallback eventbus.Publisher
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

func New(cfg Config, local Dispatcher, fallback eventbus.Publisher, logger *slog.Logger, opts ...kgo.Opt) (*Transport, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka: topic is required")
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	clientOpts := []kgo.Opt{
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout),
		kgo.ProducerLinger(5 * time.Millisecond),
	}
	if cfg.Group != "" {
		clientOpts = append(clientOpts,
			kgo.ConsumerGroup(cfg.Group),
			kgo.ConsumeTopics(cfg.Topic),
			kgo.DisableAutoCommit(),
		)
	}
	client, err := kgo.NewClient(append(clientOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	return &Transport{
		client:   client,
		topic:    cfg.Topic,
		cfg:      cfg,
		local:    local,
		fallback: fallback,
		breaker:  circuit.New("kafka-publish", circuit.WithFailureThreshold(3), circuit.WithCooldown(15*time.Second)),
		logger:   logger,
	}, nil
}

// EnsureTopic creates the topic if it does not exist yet.
func (t *Transport) EnsureTopic(ctx context.Context) error {
	partitions := t.cfg.Partitions
	if partitions <= 0 {
		partitions = 3
	}
	replication := t.cfg.ReplicationFactor
	if replication <= 0 {
		replication = 1
	}

	adm := kadm.NewClient(t.client)
	resp, err := adm.CreateTopic(ctx, partitions, replication, nil, t.topic)
	if err == nil {
		err = resp.Err
	}
	if err != nil && !errors.Is(err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", t.topic, err)
	}
	return nil
}

// Publish produces e asynchronously. Failures are logged and the event is
// delivered through the fallback publisher.
func (t *Transport) Publish(ctx context.Context, e events.Event) {
	if e == nil {
		return
	}
	if !t.breaker.Allow() {
		t.useFallback(ctx, e, nil)
		return
	}

	value, err := events.Encode(e)
	if err != nil {
		t.logger.ErrorContext(ctx, "encode event for kafka",
			"event_name", e.EventName(),
			"event_id", e.EventID(),
			"error", err,
		)
		return
	}

	record := &kgo.Record{
		Topic: t.topic,
		Key:   []byte(e.EventID()),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: headerEventName, Value: []byte(e.EventName())},
		},
	}
	detached := context.WithoutCancel(ctx)
	t.client.Produce(detached, record, func(_ *kgo.Record, err error) {
		if err != nil {
			_, change := t.breaker.RecordFailure()
			if change.Opened {
				t.logger.WarnContext(detached, "kafka publishing degraded, using in-process delivery", "topic", t.topic)
			}
			t.useFallback(detached, e, err)
			return
		}
		if _, change := t.breaker.RecordSuccess(); change.Closed {
			t.logger.InfoContext(detached, "kafka publishing recovered", "topic", t.topic)
		}
	})
}

func (t *Transport) useFallback(ctx context.Context, e events.Event, cause error) {
	if cause != nil {
		t.logger.ErrorContext(ctx, "produce event failed",
			"event_name", e.EventName(),
			"event_id", e.EventID(),
			"error", cause,
		)
	}
	if t.fallback != nil {
		t.fallback.Publish(ctx, e)
	}
}

// Run consumes the topic until ctx ends. Each polled batch is dispatched
// locally and then committed, so delivery is at-least-once.
func (t *Transport) Run(ctx context.Context) error {
	if t.cfg.Group == "" {
		return errors.New("kafka: consumer group is required to consume")
	}
	for {
		fetches := t.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			t.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var handled []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			t.deliver(ctx, r)
			handled = append(handled, r)
		})
		if len(handled) == 0 {
			continue
		}
		if err := t.client.CommitRecords(ctx, handled...); err != nil {
			t.logger.ErrorContext(ctx, "commit offsets", "error", err, "records", len(handled))
		}
	}
}

func (t *Transport) deliver(ctx context.Context, r *kgo.Record) {
	e, err := events.Decode(r.Value)
	if err != nil {
		// skip poison records; nothing can ever decode them
		t.logger.WarnContext(ctx, "skipping undecodable event",
			"topic", r.Topic,
			"partition", r.Partition,
			"offset", r.Offset,
			"error", err,
		)
		return
	}
	t.local.Dispatch(ctx, e)
}

// Close flushes pending produces and leaves the consumer group.
func (t *Transport) Close(ctx context.Context) error {
	err := t.client.Flush(ctx)
	t.client.Close()
	if err != nil {
		return fmt.Errorf("flush kafka producer: %w", err)
	}
	return nil
}

// Ping checks broker connectivity.
func (t *Transport) Ping(ctx context.Context) error {
	return t.client.Ping(ctx)
}

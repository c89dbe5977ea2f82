package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Shopify/sarama"

	"krishighor/internal/repos"
)

type outboxWriter interface {
	Add(ctx context.Context, topic, key string, content []byte) error
}

// OutboxNotifier stores the confirmation as an outbox row; Relay later
// publishes it to the broker.
type OutboxNotifier struct {
	Outbox outboxWriter
	Topic  string
}

type confirmationEvent struct {
	Event string `json:"event"`
	Confirmation
}

func (o *OutboxNotifier) Name() string { return "outbox" }

func (o *OutboxNotifier) Notify(ctx context.Context, c Confirmation) error {
	b, err := json.Marshal(confirmationEvent{Event: "order.confirmed", Confirmation: c})
	if err != nil {
		return err
	}
	return o.Outbox.Add(ctx, o.Topic, c.Order.ID, b)
}

type Message struct {
	Topic string
	Key   string
	Value []byte
}

type Producer interface {
	Push(messages []Message) error
	Close() error
}

type KafkaProducer struct {
	conn sarama.SyncProducer
}

func NewKafkaProducer(brokers []string) (*KafkaProducer, error) {
	conf := sarama.NewConfig()
	conf.Producer.Return.Successes = true
	conf.Producer.Return.Errors = true
	conf.Producer.RequiredAcks = sarama.WaitForAll
	conf.Producer.Retry.Max = 3

	conn, err := sarama.NewSyncProducer(brokers, conf)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return &KafkaProducer{conn: conn}, nil
}

func (p *KafkaProducer) Push(messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	return p.conn.SendMessages(toKafkaMessages(messages))
}

func (p *KafkaProducer) Close() error { return p.conn.Close() }

func toKafkaMessages(messages []Message) []*sarama.ProducerMessage {
	res := make([]*sarama.ProducerMessage, 0, len(messages))
	for _, m := range messages {
		res = append(res, &sarama.ProducerMessage{
			Topic: m.Topic,
			Key:   sarama.StringEncoder(m.Key),
			Value: sarama.ByteEncoder(m.Value),
		})
	}
	return res
}

type outboxReader interface {
	Pending(ctx context.Context, limit int) ([]repos.OutboxMessage, error)
	MarkSent(ctx context.Context, ids []int64) error
}

// Relay moves pending outbox rows to the broker and marks them sent.
type Relay struct {
	Outbox   outboxReader
	Producer Producer
}

// RelayOnce publishes up to limit pending messages and returns how many
// were sent. Rows are only marked after the broker accepted the batch, so a
// failure can lead to redelivery but not loss.
func (r *Relay) RelayOnce(ctx context.Context, limit int) (int, error) {
	pending, err := r.Outbox.Pending(ctx, limit)
	if err != nil || len(pending) == 0 {
		return 0, err
	}
	msgs := make([]Message, 0, len(pending))
	ids := make([]int64, 0, len(pending))
	for _, m := range pending {
		msgs = append(msgs, Message{Topic: m.Topic, Key: m.Key, Value: m.Content})
		ids = append(ids, m.ID)
	}
	if err := r.Producer.Push(msgs); err != nil {
		return 0, err
	}
	if err := r.Outbox.MarkSent(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

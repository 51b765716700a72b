// Package events publishes vote activity for downstream consumers such as analytics.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// VoteEvent describes one committed vote transition.
type VoteEvent struct {
	PromptID   string    `json:"promptId"`
	UserID     string    `json:"userId"`
	Action     string    `json:"action"`
	Value      int       `json:"value"`
	Previous   int       `json:"previous"`
	UpVotes    int       `json:"upVotes"`
	DownVotes  int       `json:"downVotes"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishVote(ctx context.Context, event VoteEvent) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishVote(context.Context, VoteEvent) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes vote events keyed by prompt id, so events for one
// prompt land on one partition in commit order.
type KafkaPublisher struct {
	w messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Async:                  true,
		AllowAutoTopicCreation: true,
	}
	return &KafkaPublisher{w: w}
}

func (p *KafkaPublisher) PublishVote(ctx context.Context, event VoteEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding vote event: %w", err)
	}

	return p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PromptID),
		Value: payload,
		Time:  event.OccurredAt,
	})
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

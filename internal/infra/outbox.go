package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/HoussemEK/Direction-Project/internal/repository"
)

// Publisher sends one message to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// OutboxPoller relays event_outbox rows to the message broker and removes
// them once published. Events of a batch are published in sequence order;
// a failed publish stops the batch so later events are not sent ahead of it.
type OutboxPoller struct {
	db          repository.DBTX
	outbox      repository.OutboxRepository
	publisher   Publisher
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	topicPrefix string
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(
	db repository.DBTX,
	outbox repository.OutboxRepository,
	publisher Publisher,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
	topicPrefix string,
) *OutboxPoller {
	return &OutboxPoller{
		db:          db,
		outbox:      outbox,
		publisher:   publisher,
		logger:      logger,
		interval:    interval,
		batchSize:   batchSize,
		topicPrefix: topicPrefix,
	}
}

// Run polls until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	p.logger.Info("outbox poller started", "interval", p.interval, "batch_size", p.batchSize)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopped")
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil {
				p.logger.Error("outbox poll error", "error", err)
			}
		}
	}
}

// Start runs the poller in a goroutine.
func (p *OutboxPoller) Start(ctx context.Context) {
	go p.Run(ctx)
}

// PollOnce relays one batch and returns how many events were published.
func (p *OutboxPoller) PollOnce(ctx context.Context) (int, error) {
	events, err := p.outbox.FetchUnpublished(ctx, p.db, p.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	published := make([]int64, 0, len(events))
	for _, e := range events {
		msg, err := EncodeEnvelope(e)
		if err != nil {
			p.logger.Error("encode outbox event", "event_id", e.EventID, "error", err)
			break
		}
		if err := p.publisher.Publish(ctx, p.Topic(e), []byte(e.PartitionKey), msg); err != nil {
			p.logger.Error("kafka publish failed", "event_id", e.EventID, "event_type", e.EventType, "error", err)
			break
		}
		published = append(published, e.SeqID)
	}

	if err := p.outbox.MarkPublished(ctx, p.db, published); err != nil {
		return 0, fmt.Errorf("mark published: %w", err)
	}

	p.logger.Debug("outbox poll complete", "published", len(published), "fetched", len(events))
	return len(published), nil
}

// Topic returns the broker topic of an event: one topic per aggregate type.
func (p *OutboxPoller) Topic(e domain.OutboxDraft) string {
	return p.topicPrefix + "." + string(e.AggregateType)
}

// EncodeEnvelope renders the message body sent for an outbox event.
func EncodeEnvelope(e domain.OutboxDraft) ([]byte, error) {
	payload := e.Payload
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return json.Marshal(map[string]interface{}{
		"event_id":       e.EventID,
		"aggregate_type": e.AggregateType,
		"aggregate_id":   e.AggregateID,
		"event_type":     e.EventType,
		"payload":        payload,
		"occurred_at":    e.OccurredAt,
	})
}

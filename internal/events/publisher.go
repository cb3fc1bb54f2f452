package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// Channel names
	ChannelPartnerLifecycle = "portal:partner:lifecycle"
	ChannelDealStatus       = "portal:deal:status"
	ChannelEntityMutation   = "portal:entity:mutation"
)

// EventPublisher fans portal mutations out over pub/sub so downstream
// consumers (CRM sync, notification workers) can react without polling.
// Publishing is best effort; a failed publish never fails the mutation
// that triggered it.
type EventPublisher struct {
	rdb    *redis.Client
	logger *zap.Logger
}

func NewEventPublisher(rdb *redis.Client, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		rdb:    rdb,
		logger: logger,
	}
}

// EntityMutationEvent is the generic envelope published for every write.
type EntityMutationEvent struct {
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// PartnerLifecycleEvent is published when a partner's status or tier moves.
type PartnerLifecycleEvent struct {
	EventType string `json:"event_type"`
	PartnerID string `json:"partner_id"`
	Field     string `json:"field"`
	Before    string `json:"before"`
	After     string `json:"after"`
	Timestamp int64  `json:"timestamp"`
}

// DealStatusEvent is published when a deal transitions status.
type DealStatusEvent struct {
	EventType string  `json:"event_type"`
	DealID    string  `json:"deal_id"`
	PartnerID string  `json:"partner_id"`
	Before    string  `json:"before"`
	After     string  `json:"after"`
	Value     float64 `json:"value"`
	Currency  string  `json:"currency"`
	Timestamp int64   `json:"timestamp"`
}

// PublishMutation publishes the generic mutation envelope.
func (p *EventPublisher) PublishMutation(ctx context.Context, event *EntityMutationEvent) error {
	event.Timestamp = time.Now().Unix()

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal mutation event",
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, ChannelEntityMutation, payload).Err(); err != nil {
		p.logger.Warn("failed to publish mutation event",
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// PublishPartnerLifecycle publishes a partner status or tier transition.
func (p *EventPublisher) PublishPartnerLifecycle(ctx context.Context, event *PartnerLifecycleEvent) error {
	event.EventType = "partner." + event.Field + "_changed"
	event.Timestamp = time.Now().Unix()

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal partner lifecycle event",
			zap.String("partner_id", event.PartnerID),
			zap.Error(err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, ChannelPartnerLifecycle, payload).Err(); err != nil {
		p.logger.Error("failed to publish partner lifecycle event",
			zap.String("partner_id", event.PartnerID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	// Also publish to the general mutation channel
	if err := p.rdb.Publish(ctx, ChannelEntityMutation, payload).Err(); err != nil {
		p.logger.Warn("failed to publish to general channel",
			zap.String("partner_id", event.PartnerID),
			zap.Error(err))
	}

	p.logger.Info("partner lifecycle event published",
		zap.String("partner_id", event.PartnerID),
		zap.String("field", event.Field),
		zap.String("before", event.Before),
		zap.String("after", event.After))

	return nil
}

// PublishDealStatus publishes a deal status transition.
func (p *EventPublisher) PublishDealStatus(ctx context.Context, event *DealStatusEvent) error {
	event.EventType = "deal.status_changed"
	event.Timestamp = time.Now().Unix()

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal deal status event",
			zap.String("deal_id", event.DealID),
			zap.Error(err))
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, ChannelDealStatus, payload).Err(); err != nil {
		p.logger.Error("failed to publish deal status event",
			zap.String("deal_id", event.DealID),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	// Also publish to the general mutation channel
	if err := p.rdb.Publish(ctx, ChannelEntityMutation, payload).Err(); err != nil {
		p.logger.Warn("failed to publish to general channel",
			zap.String("deal_id", event.DealID),
			zap.Error(err))
	}

	p.logger.Info("deal status event published",
		zap.String("deal_id", event.DealID),
		zap.String("partner_id", event.PartnerID),
		zap.String("before", event.Before),
		zap.String("after", event.After))

	return nil
}

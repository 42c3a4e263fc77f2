package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/enroltrack-backend/internal/logger"
	"github.com/yungbote/enroltrack-backend/internal/types"
)

const (
	EventEnrolmentCreated = "enrolment.created"
	EventEnrolmentUpdated = "enrolment.updated"
	EventPlanCreated      = "plan.created"
	EventPlanUpdated      = "plan.updated"
)

// Event is one domain event, emitted exactly once per committed state
// transition, after the transaction commits. Delivery/retry is the bus's
// problem, not ours.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

type EventPublisher interface {
	Publish(ctx context.Context, events ...Event)
	Close() error
}

func NewEnrolmentCreatedEvent(e *types.Enrolment) Event {
	return Event{
		Type: EventEnrolmentCreated,
		Payload: map[string]any{
			"id":                  e.ID,
			"lo_id":               e.LoID,
			"user_id":             e.UserID,
			"portal_id":           e.TakenPortalID,
			"status":              e.Status,
			"start_date":          e.StartDate,
			"due_date":            e.DueDate,
			"parent_enrolment_id": e.ParentEnrolmentID,
		},
		At: time.Now().UTC(),
	}
}

func NewEnrolmentUpdatedEvent(e *types.Enrolment, oldStatus, newStatus types.EnrolmentStatus) Event {
	return Event{
		Type: EventEnrolmentUpdated,
		Payload: map[string]any{
			"id":         e.ID,
			"old_status": oldStatus,
			"new_status": newStatus,
		},
		At: time.Now().UTC(),
	}
}

func NewPlanEvent(plan *types.Plan, created bool) Event {
	typ := EventPlanUpdated
	if created {
		typ = EventPlanCreated
	}
	return Event{
		Type: typ,
		Payload: map[string]any{
			"id":       plan.ID,
			"user_id":  plan.UserID,
			"lo_id":    plan.LoID,
			"due_date": plan.DueDate,
		},
		At: time.Now().UTC(),
	}
}

type redisEventPublisher struct {
	log     *logger.Logger
	rdb     *redis.Client
	channel string
}

// NewRedisEventPublisher connects the domain-event stream to a Redis
// pub/sub channel. Publishing is fire-and-forget: failures are logged and
// never fail the request that already committed.
func NewRedisEventPublisher(log *logger.Logger) (EventPublisher, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_EVENTS_CHANNEL"))
	if ch == "" {
		ch = "enrolment.events"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisEventPublisher{
		log:     log.With("service", "RedisEventPublisher"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (p *redisEventPublisher) Publish(ctx context.Context, events ...Event) {
	for _, ev := range events {
		raw, err := json.Marshal(ev)
		if err != nil {
			p.log.Warn("event marshal failed", "type", ev.Type, "error", err)
			continue
		}
		if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
			p.log.Warn("event publish failed", "type", ev.Type, "error", err)
		}
	}
}

func (p *redisEventPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

// NopEventPublisher drops events; used when no bus is configured.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(ctx context.Context, events ...Event) {}
func (NopEventPublisher) Close() error                                { return nil }

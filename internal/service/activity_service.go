package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/events"
)

// ActivityEntry is one human-readable line of a tenant's activity feed.
type ActivityEntry struct {
	EventID    string           `json:"id"`
	Type       events.EventType `json:"type"`
	IncidentID string           `json:"incidentId"`
	ActorID    *string          `json:"actorId,omitempty"`
	Message    string           `json:"message"`
	Timestamp  string           `json:"ts"`
}

// FeedSink stores activity entries.
type FeedSink interface {
	Append(ctx context.Context, organizationID string, entry ActivityEntry) error
}

type listWriter interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd
}

// RedisFeed keeps the newest entries of each tenant in a capped Redis list.
type RedisFeed struct {
	client listWriter
	maxLen int64
}

// NewRedisFeed constructs a Redis feed capped at maxLen entries.
func NewRedisFeed(client listWriter, maxLen int64) *RedisFeed {
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &RedisFeed{client: client, maxLen: maxLen}
}

// FeedKey returns the Redis list key of a tenant feed.
func FeedKey(organizationID string) string {
	return "activity:" + organizationID
}

// Append pushes entry to the head of the list and trims the tail.
func (f *RedisFeed) Append(ctx context.Context, organizationID string, entry ActivityEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := FeedKey(organizationID)
	if err := f.client.LPush(ctx, key, payload).Err(); err != nil {
		return fmt.Errorf("push activity: %w", err)
	}
	if err := f.client.LTrim(ctx, key, 0, f.maxLen-1).Err(); err != nil {
		return fmt.Errorf("trim activity: %w", err)
	}
	return nil
}

// LogFeed writes entries to the logger when no Redis is configured.
type LogFeed struct {
	logger *zap.Logger
}

// NewLogFeed constructs a log-backed feed.
func NewLogFeed(logger *zap.Logger) *LogFeed {
	return &LogFeed{logger: logger}
}

// Append logs entry.
func (f *LogFeed) Append(_ context.Context, organizationID string, entry ActivityEntry) error {
	f.logger.Info("activity",
		zap.String("organization_id", organizationID),
		zap.String("incident_id", entry.IncidentID),
		zap.String("type", string(entry.Type)),
		zap.String("message", entry.Message))
	return nil
}

// ActivityService turns incident events into feed entries.
type ActivityService struct {
	dispatcher events.Dispatcher
	feed       FeedSink
	logger     *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, feed FeedSink, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		feed:       feed,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil || a.feed == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventAny, a.handle)
}

func (a *ActivityService) handle(ctx context.Context, event events.Event) error {
	entry := ActivityEntry{
		EventID:    event.ID,
		Type:       event.Type,
		IncidentID: event.IncidentID,
		ActorID:    event.ActorID,
		Message:    describe(event),
		Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
	}
	return a.feed.Append(ctx, event.OrganizationID, entry)
}

func describe(event events.Event) string {
	ref := event.TicketNumber
	if ref == "" {
		ref = event.IncidentID
	}
	switch p := event.Payload.(type) {
	case events.IncidentCreatedPayload:
		return fmt.Sprintf("%s created with %s priority: %s", ref, p.Priority, p.Title)
	case events.IncidentStatusChangedPayload:
		return fmt.Sprintf("%s moved from %s to %s", ref, p.From, p.To)
	case events.IncidentUpdatedPayload:
		return fmt.Sprintf("%s updated (%d fields)", ref, len(p.Fields))
	case events.IncidentCommentedPayload:
		if p.IsInternal {
			return fmt.Sprintf("%s received an internal note", ref)
		}
		return fmt.Sprintf("%s received a comment", ref)
	case events.IncidentAssignedPayload:
		return fmt.Sprintf("%s auto-assigned to %s", ref, p.AssigneeID)
	case events.IncidentsMergedPayload:
		return fmt.Sprintf("%s absorbed %d duplicate incidents", ref, len(p.SourceIDs))
	default:
		return fmt.Sprintf("%s: %s", ref, event.Type)
	}
}

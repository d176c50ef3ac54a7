// Package usersink forwards preference activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-prefs/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// IDs that are not UUIDs are recorded as uuid.Nil; the raw value is kept in
// the record data under "<field>_ref".
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := map[string]any{}
	for key, value := range normalized.Metadata {
		data[key] = value
	}
	if normalized.Domain != "" {
		data["domain"] = normalized.Domain
	}

	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID, "actor_ref", data),
		UserID:     parseUUID(normalized.UserID, "user_ref", data),
		TenantID:   parseUUID(normalized.TenantID, "tenant_ref", data),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		OccurredAt: normalized.OccurredAt,
	}
	if len(data) > 0 {
		record.Data = data
	}
	return h.Sink.Log(ctx, record)
}

func parseUUID(input, field string, data map[string]any) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		data[field] = value
		return uuid.Nil
	}
	return id
}

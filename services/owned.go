package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/LovationAdmin/finance-api/events"
	"github.com/LovationAdmin/finance-api/repository"
)

// loadOwned fetches a record and checks that userID owns it. A missing
// record is NotFound, someone else's record is Forbidden.
func loadOwned[T any](ctx context.Context, get func(context.Context, string) (*T, error), owner func(*T) string, id, userID, resource, action string) (*T, error) {
	rec, err := get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, notFound(resource + " not found")
	}
	if err != nil {
		return nil, internal(fmt.Errorf("load %s: %w", strings.ToLower(resource), err))
	}
	if owner(rec) != userID {
		return nil, forbidden(fmt.Sprintf("Not authorized to %s this %s", action, strings.ToLower(resource)))
	}
	return rec, nil
}

// storeErr maps a repository error from a write that was already preceded
// by an ownership check. ErrNotFound then means the record vanished.
func storeErr(err error, resource, op string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(resource + " not found")
	}
	return internal(fmt.Errorf("%s %s: %w", op, strings.ToLower(resource), err))
}

// notify publishes best-effort: a failing sink is logged and ignored.
func notify(ctx context.Context, p events.Publisher, logger *slog.Logger, e events.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		logger.WarnContext(ctx, "event publish failed",
			"event", string(e.Type),
			"user_id", e.UserID,
			"error", err,
		)
	}
}

func trimmed(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

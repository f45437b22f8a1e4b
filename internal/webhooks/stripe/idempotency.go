package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LLTIGER/pulse-architects-sub001/pkg/instance"
)

const maxEventIDBytes = 255

var errEventID = errors.New("event id is required")

type claimStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// IdempotencyGuard is the fast-path dedupe in front of the durable
// webhook_events table. Losing a claim costs at most one redundant pass
// through the service, which dedupes again on the event row.
type IdempotencyGuard struct {
	store claimStore
	ttl   time.Duration
	scope string

	// claims made by this process, so Release never drops a claim another
	// replica took after ours expired
	claims sync.Map
}

func NewIdempotencyGuard(store claimStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl <= 0:
		return nil, errors.New("ttl must be positive")
	case scope == "":
		return nil, errors.New("scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark claims eventID and reports whether someone already held it.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if err := checkEventID(eventID); err != nil {
		return false, err
	}
	token := fmt.Sprintf("%s:%s:%d", instance.GetID(), uuid.NewString(), time.Now().Unix())
	claimed, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, eventID), token, g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", eventID, err)
	}
	if !claimed {
		return true, nil
	}
	g.claims.Store(eventID, token)
	return false, nil
}

// Done forgets a claim that should stay in place until its TTL runs out.
func (g *IdempotencyGuard) Done(eventID string) {
	g.claims.Delete(eventID)
}

// Release drops our claim so the provider's retry is processed again.
func (g *IdempotencyGuard) Release(ctx context.Context, eventID string) error {
	if err := checkEventID(eventID); err != nil {
		return err
	}
	token, ok := g.claims.LoadAndDelete(eventID)
	if !ok {
		return nil
	}
	if _, err := g.store.CompareAndDelete(ctx, g.store.IdempotencyKey(g.scope, eventID), token.(string)); err != nil {
		return fmt.Errorf("release %s: %w", eventID, err)
	}
	return nil
}

func checkEventID(id string) error {
	switch {
	case id == "":
		return errEventID
	case len(id) > maxEventIDBytes:
		return fmt.Errorf("event id longer than %d bytes", maxEventIDBytes)
	}
	return nil
}

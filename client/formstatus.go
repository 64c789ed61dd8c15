package client

import (
	"context"
	"sync"
	"time"
)

// StatusCacheTTL is how long a cached form-status answer stays valid.
// Entries older than this are treated as absent; nothing sweeps them.
const StatusCacheTTL = 5 * time.Minute

// statusFetcher is the one API call the checker needs.
type statusFetcher interface {
	CheckFormStatus(ctx context.Context, clerkID string) (bool, error)
}

type statusEntry struct {
	status bool
	at     time.Time
}

// StatusChecker answers "has this user completed onboarding?" with a
// per-user TTL cache in front of the API, so navigation guards don't hammer
// the status endpoint on every route change.
//
// Known inconsistency window: submitting the form does NOT evict the
// submitter's entry, so a cached "false" can survive up to 5 minutes past a
// user's first submission. Concurrent misses for the same key may both hit
// the network — the endpoint is idempotent and cheap, so there is no request
// coalescing.
type StatusChecker struct {
	api statusFetcher
	now func() time.Time // injected so tests can move time

	mu      sync.Mutex
	entries map[string]statusEntry
}

// NewStatusChecker creates a StatusChecker over the given API client.
func NewStatusChecker(api statusFetcher) *StatusChecker {
	return &StatusChecker{
		api:     api,
		now:     time.Now,
		entries: make(map[string]statusEntry),
	}
}

// HasCompletedForm returns the user's onboarding status, from cache when the
// entry is younger than StatusCacheTTL, otherwise from the API.
//
// Any fetch failure — including a canceled context when the caller goes away
// mid-request — returns the error WITHOUT touching the cache: an aborted
// check is "no update", and the next call retries the network.
func (c *StatusChecker) HasCompletedForm(ctx context.Context, clerkID string) (bool, error) {
	c.mu.Lock()
	entry, ok := c.entries[clerkID]
	fresh := ok && c.now().Sub(entry.at) < StatusCacheTTL
	c.mu.Unlock()

	if fresh {
		return entry.status, nil
	}

	status, err := c.api.CheckFormStatus(ctx, clerkID)
	if err != nil {
		return false, err
	}

	c.mu.Lock()
	c.entries[clerkID] = statusEntry{status: status, at: c.now()}
	c.mu.Unlock()

	return status, nil
}

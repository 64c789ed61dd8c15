package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// InvestmentData is the rendering shape of the analysis engine's document:
// what the report view draws. The server stores the document as an opaque
// blob; only this side ever looks inside it.
type InvestmentData struct {
	Recommendations []AllocationRecommendation `json:"recommendations"`
	MarketAnalysis  map[string]MarketAnalysis  `json:"market_analysis"`
	ReviewSchedule  string                     `json:"review_schedule"`
	Disclaimer      string                     `json:"disclaimer"`
}

// AllocationRecommendation is one slice of the recommended portfolio.
type AllocationRecommendation struct {
	AssetType            string  `json:"asset_type"`
	AllocationPercentage float64 `json:"allocation_percentage"`
	Details              string  `json:"details"`
}

// MarketAnalysis is the engine's commentary for a single asset type.
type MarketAnalysis struct {
	Outlook    string `json:"outlook"`
	Commentary string `json:"commentary"`
}

// State is what subscribers of the InvestmentStore observe.
type State struct {
	Data    *InvestmentData
	Loading bool
	Err     string
}

// investmentFetcher is the one API call the store needs.
type investmentFetcher interface {
	InvestmentData(ctx context.Context, clerkID string) (*InvestmentData, error)
}

type subscriber struct {
	id int
	fn func(State)
}

// InvestmentStore holds the current investment result for the signed-in user
// and notifies subscribers when it changes.
//
// Notification contract: synchronous, in registration order, and a new
// subscriber immediately receives the current state. The store is scoped to
// one user at a time — switching users resets it.
//
// "No data yet" (a brand-new user) is not an error: the store substitutes the
// built-in starter dataset so the report view is never blank. A transport or
// server failure, by contrast, keeps whatever data was already shown and
// surfaces an error state — outages must not masquerade as empty accounts.
type InvestmentStore struct {
	api    investmentFetcher
	logger *slog.Logger

	mu      sync.Mutex
	clerkID string
	state   State
	subs    []subscriber
	nextID  int
}

// NewInvestmentStore creates a store with no user set.
func NewInvestmentStore(api investmentFetcher, logger *slog.Logger) *InvestmentStore {
	return &InvestmentStore{
		api:    api,
		logger: logger,
		state:  State{Loading: true},
	}
}

// SetUser switches the store to a new identity. An empty id (sign-out)
// clears the state with no network call; otherwise the state resets to
// loading and a background fetch starts.
func (s *InvestmentStore) SetUser(clerkID string) {
	s.mu.Lock()
	s.clerkID = clerkID
	s.mu.Unlock()

	if clerkID == "" {
		s.setState(State{})
		return
	}

	s.setState(State{Loading: true})
	go func() {
		// Ignore the result here — subscribers see it via state.
		_, _ = s.Fetch(context.Background())
	}()
}

// Fetch loads the user's investment data from the API and publishes the
// outcome to subscribers. Returns the data that is now current, or the fetch
// error (a not-found is resolved to the starter dataset and is not an error).
func (s *InvestmentStore) Fetch(ctx context.Context) (*InvestmentData, error) {
	s.mu.Lock()
	clerkID := s.clerkID
	s.mu.Unlock()

	if clerkID == "" {
		return nil, nil
	}

	s.setState(State{Data: s.State().Data, Loading: true})

	data, err := s.api.InvestmentData(ctx, clerkID)

	// The user may have switched while the request was in flight; a stale
	// response must not clobber the new user's state.
	s.mu.Lock()
	current := s.clerkID
	s.mu.Unlock()
	if current != clerkID {
		return nil, nil
	}

	switch {
	case err == nil:
		s.setState(State{Data: data})
		return data, nil

	case errors.Is(err, ErrNotFound):
		// New user, nothing submitted yet — show the starter dataset.
		starter := StarterInvestmentData()
		s.setState(State{Data: starter})
		return starter, nil

	default:
		s.logger.Error("investment data fetch failed",
			slog.String("clerkId", clerkID),
			slog.String("error", err.Error()),
		)
		s.setState(State{Data: s.State().Data, Err: err.Error()})
		return nil, err
	}
}

// Subscribe registers an observer and synchronously delivers the current
// state to it. The returned function unsubscribes.
func (s *InvestmentStore) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	current := s.state
	s.mu.Unlock()

	fn(current)

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// State returns the current state.
func (s *InvestmentStore) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState replaces the state and notifies all subscribers in registration
// order. Callbacks run outside the lock so a subscriber may subscribe or
// unsubscribe from within its callback.
func (s *InvestmentStore) setState(next State) {
	s.mu.Lock()
	s.state = next
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
}

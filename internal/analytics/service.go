package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"zapview/internal/conversation"
	"zapview/internal/db"
	"zapview/internal/ratelimit"
	"zapview/internal/timeutil"
)

// ErrThrottled is returned when the rate limiter rejects an
// operation. Callers should back off rather than retry
// immediately, and must surface it distinctly from store
// failures and empty results.
var ErrThrottled = errors.New("rate limit exceeded")

// Store is the row-store collaborator. Delivery order is not
// guaranteed to be chronological; consumers re-sort.
type Store interface {
	QueryTurns(ctx context.Context, f db.TurnFilter) ([]db.Turn, error)
}

// DefaultRecentLimit caps the recent-conversations slice of the
// overview.
const DefaultRecentLimit = 20

// Service composes the clock, limiter, reconstructor and
// aggregation views behind the dashboard endpoints. All
// collaborators are injected at construction; the service holds
// no other state and caches nothing between calls.
type Service struct {
	store       Store
	clock       *timeutil.Clock
	limiter     *ratelimit.Limiter
	log         zerolog.Logger
	recentLimit int
}

// NewService creates a Service.
func NewService(
	store Store, clock *timeutil.Clock, limiter *ratelimit.Limiter,
	log zerolog.Logger,
) *Service {
	return &Service{
		store:       store,
		clock:       clock,
		limiter:     limiter,
		log:         log,
		recentLimit: DefaultRecentLimit,
	}
}

// Overview is the full dashboard payload for one period.
type Overview struct {
	Period    Period                       `json:"period"`
	Stats     Stats                        `json:"stats"`
	Recent    []*conversation.Conversation `json:"recent_conversations"`
	Daily     []DatePoint                  `json:"daily"`
	Hourly    []HourPoint                  `json:"hourly"`
	AreaCodes []PrefixBucket               `json:"area_codes"`
}

// Admit consults the limiter for one logical operation on behalf
// of subject without running a query. Callers outside this
// package use it to throttle adjacent write endpoints under the
// same quota.
func (s *Service) Admit(subject, operation string) error {
	return s.admit(subject, operation)
}

// admit consults the limiter for one logical operation on behalf
// of subject.
func (s *Service) admit(subject, operation string) error {
	key := ratelimit.Key(subject, operation)
	if !s.limiter.Admit(key, s.clock.Now()) {
		return fmt.Errorf("%w: %s", ErrThrottled, key)
	}
	return nil
}

// window resolves the [from, now] range for a period in the
// dashboard timezone.
func (s *Service) window(period Period) (time.Time, time.Time) {
	now := s.clock.Now()
	return now.Add(-time.Duration(period.Days()) * 24 * time.Hour), now
}

// fetch pulls the rows for [from, to] once. A store failure is
// the single terminal error for the query; no partial result is
// returned.
func (s *Service) fetch(ctx context.Context, from, to time.Time) ([]db.Turn, error) {
	rows, err := s.store.QueryTurns(ctx, db.TurnFilter{From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("fetching turns: %w", err)
	}
	return rows, nil
}

// Overview builds the complete dashboard response for a period
// from a single row fetch.
func (s *Service) Overview(
	ctx context.Context, subject string, period Period,
) (*Overview, error) {
	if err := s.admit(subject, "overview"); err != nil {
		return nil, err
	}

	from, now := s.window(period)
	rows, err := s.fetch(ctx, from, now)
	if err != nil {
		return nil, err
	}

	res := conversation.Reconstruct(rows)
	s.logMalformed(res.Malformed, "overview")

	return &Overview{
		Period:    period,
		Stats:     Summarize(s.clock, rows),
		Recent:    conversation.Recent(res.Conversations, s.recentLimit),
		Daily:     DailySeries(s.clock, rows, from, now),
		Hourly:    HourlySeries(s.clock, rows, from, now),
		AreaCodes: AreaCodes(rows),
	}, nil
}

// Conversations reconstructs every session active in the period,
// newest first.
func (s *Service) Conversations(
	ctx context.Context, subject string, period Period,
) ([]*conversation.Conversation, error) {
	if err := s.admit(subject, "conversations"); err != nil {
		return nil, err
	}

	from, now := s.window(period)
	rows, err := s.fetch(ctx, from, now)
	if err != nil {
		return nil, err
	}

	res := conversation.Reconstruct(rows)
	s.logMalformed(res.Malformed, "conversations")
	return conversation.Recent(res.Conversations, -1), nil
}

// Conversation reconstructs a single session, ignoring the
// period window. Returns nil when the session has no rows.
func (s *Service) Conversation(
	ctx context.Context, subject, sessionID string,
) (*conversation.Conversation, error) {
	if err := s.admit(subject, "conversation"); err != nil {
		return nil, err
	}

	rows, err := s.store.QueryTurns(ctx, db.TurnFilter{SessionID: sessionID})
	if err != nil {
		return nil, fmt.Errorf("fetching turns: %w", err)
	}

	c, malformed := conversation.ReconstructOne(sessionID, rows)
	s.logMalformed(malformed, "conversation")
	return c, nil
}

// DashboardStats computes the summary tile numbers for a period.
func (s *Service) DashboardStats(
	ctx context.Context, subject string, period Period,
) (Stats, error) {
	if err := s.admit(subject, "stats"); err != nil {
		return Stats{}, err
	}

	from, now := s.window(period)
	rows, err := s.fetch(ctx, from, now)
	if err != nil {
		return Stats{}, err
	}
	return Summarize(s.clock, rows), nil
}

// Daily computes the daily volume series for a period.
func (s *Service) Daily(
	ctx context.Context, subject string, period Period,
) ([]DatePoint, error) {
	if err := s.admit(subject, "daily"); err != nil {
		return nil, err
	}

	from, now := s.window(period)
	rows, err := s.fetch(ctx, from, now)
	if err != nil {
		return nil, err
	}
	return DailySeries(s.clock, rows, from, now), nil
}

// Hourly computes the hour-of-day volume series for a period.
func (s *Service) Hourly(
	ctx context.Context, subject string, period Period,
) ([]HourPoint, error) {
	if err := s.admit(subject, "hourly"); err != nil {
		return nil, err
	}

	from, now := s.window(period)
	rows, err := s.fetch(ctx, from, now)
	if err != nil {
		return nil, err
	}
	return HourlySeries(s.clock, rows, from, now), nil
}

// AreaCodeDistribution computes unique sessions per area code
// for a period.
func (s *Service) AreaCodeDistribution(
	ctx context.Context, subject string, period Period,
) ([]PrefixBucket, error) {
	if err := s.admit(subject, "area-codes"); err != nil {
		return nil, err
	}

	from, now := s.window(period)
	rows, err := s.fetch(ctx, from, now)
	if err != nil {
		return nil, err
	}
	return AreaCodes(rows), nil
}

// logMalformed records excluded rows as a diagnostic. Malformed
// rows never fail a query; the log is a side channel only.
func (s *Service) logMalformed(count int, operation string) {
	if count > 0 {
		s.log.Warn().
			Int("rows", count).
			Str("operation", operation).
			Msg("excluded rows with invalid timestamps")
	}
}

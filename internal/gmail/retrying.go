package gmail

import (
	"context"
	"log/slog"
	"time"

	"github.com/emailzen/emailzen/internal/logging"
	"github.com/emailzen/emailzen/internal/retry"
)

// AuthRefresher lets the retrying layer discard an access token the API
// rejected so the token source mints a fresh one on the next call.
type AuthRefresher interface {
	InvalidateAccess() error
}

// RateLimitPolicy is the 429 schedule: up to five retries after the
// first failure, with delays of 1, 2, 4, 8 and 16 seconds, capped
// at 32.
var RateLimitPolicy = retry.Policy{
	MaxAttempts: 5,
	BaseDelay:   time.Second,
	MaxDelay:    32 * time.Second,
}

// RetryingService decorates a Service with the error policy every
// caller relies on: one token reacquire for 401/403, the rate-limit
// schedule for 429, typed errors for everything that remains.
type RetryingService struct {
	inner  Service
	auth   AuthRefresher
	policy retry.Policy
	logger *slog.Logger
}

// NewRetryingService wraps inner. auth may be nil when no reacquire
// path exists (tests).
func NewRetryingService(inner Service, auth AuthRefresher, logger *slog.Logger) *RetryingService {
	return &RetryingService{
		inner:  inner,
		auth:   auth,
		policy: RateLimitPolicy,
		logger: logger,
	}
}

func (s *RetryingService) ListLabels(ctx context.Context) ([]Label, error) {
	var labels []Label
	err := s.do(ctx, "labels.list", func() error {
		var err error
		labels, err = s.inner.ListLabels(ctx)
		return err
	})
	return labels, err
}

func (s *RetryingService) CreateLabel(ctx context.Context, name string) (Label, error) {
	var label Label
	err := s.do(ctx, "labels.create", func() error {
		var err error
		label, err = s.inner.CreateLabel(ctx, name)
		return err
	})
	return label, err
}

func (s *RetryingService) ListMessages(ctx context.Context, query, pageToken string, maxResults int64) (ListPage, error) {
	var page ListPage
	err := s.do(ctx, "messages.list", func() error {
		var err error
		page, err = s.inner.ListMessages(ctx, query, pageToken, maxResults)
		return err
	})
	return page, err
}

func (s *RetryingService) GetMessage(ctx context.Context, id string) (Message, error) {
	var msg Message
	err := s.do(ctx, "messages.get", func() error {
		var err error
		msg, err = s.inner.GetMessage(ctx, id)
		return err
	})
	return msg, err
}

func (s *RetryingService) Modify(ctx context.Context, id string, spec ModifySpec) error {
	return s.do(ctx, "messages.modify", func() error {
		return s.inner.Modify(ctx, id, spec)
	})
}

func (s *RetryingService) Trash(ctx context.Context, id string) error {
	return s.do(ctx, "messages.trash", func() error {
		return s.inner.Trash(ctx, id)
	})
}

func (s *RetryingService) do(ctx context.Context, op string, fn func() error) error {
	reauthed := false
	rateLimited := 0

	for {
		err := fn()
		if err == nil {
			return nil
		}

		status := StatusOf(err)
		switch {
		case status == 401 || status == 403:
			if !reauthed && s.auth != nil {
				reauthed = true
				s.log(ctx, slog.LevelInfo, "reacquiring token after auth failure", op, status)
				if ierr := s.auth.InvalidateAccess(); ierr != nil {
					return &AuthError{Status: status, Err: ierr}
				}
				continue
			}
			return &AuthError{Status: status, Err: err}

		case status == 429:
			rateLimited++
			if rateLimited > s.policy.MaxAttempts {
				return &RateLimitError{Err: err}
			}
			delay := s.policy.Delay(rateLimited - 1)
			s.log(ctx, slog.LevelWarn, "rate limited, backing off", op, status,
				slog.Duration("delay", delay))
			if serr := retry.Sleep(ctx, delay); serr != nil {
				return serr
			}
			continue

		case status > 0:
			return &TransportError{Status: status, Err: err}

		default:
			return err
		}
	}
}

func (s *RetryingService) log(ctx context.Context, level slog.Level, msg, op string, status int, attrs ...any) {
	if s.logger == nil {
		return
	}
	args := append([]any{logging.Operation(op), slog.Int("http_status", status)}, attrs...)
	s.logger.Log(ctx, level, msg, args...)
}

package gmail

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

// scriptedService returns the queued errors in order, then succeeds.
type scriptedService struct {
	errs  []error
	calls int
}

func (s *scriptedService) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedService) ListLabels(context.Context) ([]Label, error) {
	return []Label{{ID: "Label_1", Name: "Shop"}}, s.next()
}
func (s *scriptedService) CreateLabel(_ context.Context, name string) (Label, error) {
	return Label{ID: "Label_new", Name: name}, s.next()
}
func (s *scriptedService) ListMessages(context.Context, string, string, int64) (ListPage, error) {
	return ListPage{IDs: []string{"m1"}}, s.next()
}
func (s *scriptedService) GetMessage(_ context.Context, id string) (Message, error) {
	return Message{ID: id}, s.next()
}
func (s *scriptedService) Modify(context.Context, string, ModifySpec) error { return s.next() }
func (s *scriptedService) Trash(context.Context, string) error              { return s.next() }

type fakeRefresher struct {
	calls int
}

func (f *fakeRefresher) InvalidateAccess() error {
	f.calls++
	return nil
}

func apiError(code int) error {
	return &googleapi.Error{Code: code, Message: "scripted"}
}

func fastRetrying(inner Service, auth AuthRefresher) *RetryingService {
	s := NewRetryingService(inner, auth, nil)
	s.policy.BaseDelay = time.Millisecond
	s.policy.MaxDelay = 2 * time.Millisecond
	return s
}

func TestRetryingRecoversFromRateLimits(t *testing.T) {
	inner := &scriptedService{errs: []error{apiError(429), apiError(429), apiError(429)}}
	svc := fastRetrying(inner, nil)

	err := svc.Modify(context.Background(), "m1", ModifySpec{Add: []string{"Label_1"}})
	require.NoError(t, err)
	assert.Equal(t, 4, inner.calls)
}

func TestRetryingGivesUpAfterRepeatedRateLimits(t *testing.T) {
	// Five retries after the initial failure, then the sixth 429 is
	// surfaced as a rate limit error.
	inner := &scriptedService{errs: []error{
		apiError(429), apiError(429), apiError(429),
		apiError(429), apiError(429), apiError(429),
	}}
	svc := fastRetrying(inner, nil)

	err := svc.Modify(context.Background(), "m1", ModifySpec{Add: []string{"Label_1"}})

	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 6, inner.calls)
}

func TestRetryingReacquiresTokenOn401(t *testing.T) {
	inner := &scriptedService{errs: []error{apiError(401)}}
	auth := &fakeRefresher{}
	svc := fastRetrying(inner, auth)

	_, err := svc.GetMessage(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, auth.calls)
	assert.Equal(t, 2, inner.calls)
}

func TestRetryingPersistent403BecomesAuthError(t *testing.T) {
	inner := &scriptedService{errs: []error{apiError(403), apiError(403)}}
	auth := &fakeRefresher{}
	svc := fastRetrying(inner, auth)

	_, err := svc.ListMessages(context.Background(), "in:inbox", "", 50)

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 403, authErr.Status)
	assert.Contains(t, authErr.Error(), "Gmail API is enabled")
	assert.Equal(t, 1, auth.calls)
}

func TestRetryingWithoutRefresherFailsImmediately(t *testing.T) {
	inner := &scriptedService{errs: []error{apiError(401)}}
	svc := fastRetrying(inner, nil)

	_, err := svc.GetMessage(context.Background(), "m1")

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingWrapsOtherStatusesAsTransport(t *testing.T) {
	inner := &scriptedService{errs: []error{apiError(500)}}
	svc := fastRetrying(inner, nil)

	err := svc.Trash(context.Background(), "m1")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 500, te.Status)
}

func TestRetryingPassesThroughPlainErrors(t *testing.T) {
	sentinel := errors.New("network down")
	inner := &scriptedService{errs: []error{sentinel}}
	svc := fastRetrying(inner, nil)

	_, err := svc.ListLabels(context.Background())
	assert.ErrorIs(t, err, sentinel)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&RateLimitError{Err: apiError(429)}))
	assert.True(t, IsRetryable(&TransportError{Status: 503, Err: apiError(503)}))
	assert.True(t, IsRetryable(apiError(429)))
	assert.False(t, IsRetryable(&TransportError{Status: 404, Err: apiError(404)}))
	assert.False(t, IsRetryable(&AuthError{Status: 403, Err: apiError(403)}))
	assert.False(t, IsRetryable(errors.New("plain")))
}

package gmail

import (
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// TransportError is a non-2xx API response that is neither an auth nor
// a quota failure.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("gmail request failed with status %d: %v", e.Status, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// AuthError is a 401 or 403 that survived a token reacquire. For 403
// the message walks through the likely configuration causes, since the
// API reports all of them the same way.
type AuthError struct {
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status == 403 {
		return fmt.Sprintf("gmail access forbidden (403): check that the Gmail API is enabled for the project, "+
			"that the OAuth consent screen includes the gmail.modify, gmail.labels and gmail.readonly scopes, "+
			"and that the account granted those scopes during authorization: %v", e.Err)
	}
	return fmt.Sprintf("gmail authentication failed (%d), run 'emailzen auth' to reauthorize: %v", e.Status, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RateLimitError is a 429 that persisted through the retry schedule.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("gmail rate limit exceeded after retries: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// StatusOf extracts the HTTP status of an API error, or 0 when err
// carries none.
func StatusOf(err error) int {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return 0
}

// IsRetryable reports whether an error is worth retrying at a whole-run
// level: quota pressure and server-side 5xx responses.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status >= 500
	}
	status := StatusOf(err)
	return status == 429 || status >= 500
}

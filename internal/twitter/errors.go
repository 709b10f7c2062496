package twitter

import (
	"fmt"
	"strings"
	"time"
)

// Legacy error codes the posting fallback ladder dispatches on.
const (
	CodeDuplicateContent = 187
	CodeReplyForbidden   = 385
)

// RateLimitError reports an HTTP 429. ResetAt carries the server-advised
// reset instant when the x-rate-limit-reset header was present; zero otherwise.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "twitter: rate limited"
	}
	return fmt.Sprintf("twitter: rate limited until %s", e.ResetAt.Format(time.RFC3339))
}

// ForbiddenError reports an HTTP 403 with whatever legacy error codes the
// response body carried.
type ForbiddenError struct {
	Codes  []int
	Detail string
}

func (e *ForbiddenError) Error() string {
	if len(e.Codes) > 0 {
		return fmt.Sprintf("twitter: forbidden (codes %v)", e.Codes)
	}
	if e.Detail != "" {
		return fmt.Sprintf("twitter: forbidden: %s", e.Detail)
	}
	return "twitter: forbidden"
}

func (e *ForbiddenError) hasCode(code int) bool {
	for _, c := range e.Codes {
		if c == code {
			return true
		}
	}
	return false
}

// ReplyForbidden reports whether the tweet author's settings refuse replies.
func (e *ForbiddenError) ReplyForbidden() bool {
	return e.hasCode(CodeReplyForbidden)
}

// DuplicateContent reports whether the remote rejected the post as a
// duplicate status.
func (e *ForbiddenError) DuplicateContent() bool {
	return e.hasCode(CodeDuplicateContent) ||
		strings.Contains(strings.ToLower(e.Detail), "duplicate")
}

// BadRequestError reports an HTTP 400 (malformed parameters).
type BadRequestError struct {
	Detail string
}

func (e *BadRequestError) Error() string {
	if e.Detail == "" {
		return "twitter: bad request"
	}
	return "twitter: bad request: " + e.Detail
}

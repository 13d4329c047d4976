package session

import (
	"context"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Retry policy for rate-limited model calls. One retry budget per
// invocation; each retry resends a trimmed message stack with a tighter
// output cap so the request fits the provider's token-per-minute window.
const (
	// MaxRetries bounds re-attempts after the initial call.
	MaxRetries = 2

	// trimmedKeepTail is how many non-system messages survive trimming.
	trimmedKeepTail = 3

	// trimmedMaxOut caps output tokens on retried calls.
	trimmedMaxOut = 150

	// retryPause spaces retries apart.
	retryPause = 200 * time.Millisecond
)

// retryablePatterns identify provider rate-limit errors by message text.
// The model interface is provider-agnostic, so there is no typed error to
// match on.
var retryablePatterns = []string{
	"429",
	"rate limit",
	"ratelimit",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"overloaded",
	"too many requests",
}

func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// generateWithRetry invokes the model, retrying rate-limited failures with
// a trimmed stack. Non-retryable errors surface immediately.
func (s *Session) generateWithRetry(ctx context.Context, req *ModelRequest) (*ModelResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := s.model.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !isRateLimited(err) {
			return nil, err
		}
		if attempt == MaxRetries {
			break
		}

		s.logger.Warn("model call rate limited, retrying with trimmed stack",
			"attempt", attempt+1,
			"messages", len(req.Messages))
		req = trimForRetry(req)
		s.sleep(retryPause)
	}
	return nil, lastErr
}

// trimForRetry keeps every system message (prompt and pinned instructions)
// plus the last few non-system messages, and tightens the output cap.
func trimForRetry(req *ModelRequest) *ModelRequest {
	var system, others []Message
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m)
		} else {
			others = append(others, m)
		}
	}
	if len(others) > trimmedKeepTail {
		others = others[len(others)-trimmedKeepTail:]
	}

	maxOut := req.MaxOutputTokens
	if maxOut == 0 || maxOut > trimmedMaxOut {
		maxOut = trimmedMaxOut
	}
	return &ModelRequest{
		Messages:        append(system, others...),
		Tools:           req.Tools,
		ToolChoice:      req.ToolChoice,
		MaxOutputTokens: maxOut,
	}
}

// newLimiter is the default proactive rate limiter shared by sessions when
// the caller does not supply one.
func newLimiter() *rate.Limiter {
	return rate.NewLimiter(10, 30)
}

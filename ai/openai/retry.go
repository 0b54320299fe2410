// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/normqa/ai"
)

// isRateLimited reports whether err looks like an upstream rate-limit
// response. The OpenAI-compatible client surfaces these as plain errors,
// so detection is by message.
func isRateLimited(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests")
}

// retryRateLimited runs operation, retrying only rate-limited failures with
// exponential backoff: baseDelay before the second attempt, doubling after.
// Other errors return immediately. When all attempts are rate limited the
// returned error wraps ai.ErrRateLimited.
func retryRateLimited(ctx context.Context, operation func() error, maxAttempts int, baseDelay time.Duration) error {
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("call succeeded after rate-limit retry", "attempt", attempt)
			}
			return nil
		}
		if !isRateLimited(lastErr) {
			return lastErr
		}

		if attempt == maxAttempts {
			break
		}
		slog.Warn("rate limited, backing off",
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}

	return fmt.Errorf("%w after %d attempts: %w", ai.ErrRateLimited, maxAttempts, lastErr)
}

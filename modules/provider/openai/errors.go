package openai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/flemzord/fitagent/internal/provider"
)

// statusPattern extracts the HTTP status langchaingo embeds in API errors
// ("API returned unexpected status code: 429: ...").
var statusPattern = regexp.MustCompile(`status code: (\d{3})`)

// mapError maps a langchaingo error to a provider sentinel error.
// Context errors pass through unchanged.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
	}

	msg := err.Error()
	if m := statusPattern.FindStringSubmatch(msg); m != nil {
		code, _ := strconv.Atoi(m[1])
		switch {
		case code == 429:
			return fmt.Errorf("%w: %w", provider.ErrRateLimit, err)
		case code == 401 || code == 403:
			return fmt.Errorf("%w: %w", provider.ErrAuth, err)
		case code == 400 && strings.Contains(strings.ToLower(msg), "context_length"):
			return fmt.Errorf("%w: %w", provider.ErrContextLength, err)
		case code >= 500:
			return fmt.Errorf("%w: %w", provider.ErrProviderDown, err)
		}
	}
	return fmt.Errorf("openai: %w", err)
}

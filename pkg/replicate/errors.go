package replicate

import (
	"errors"
	"fmt"
)

// ErrProviderUnavailable is returned when no API token is configured. The client never fakes a result.
var ErrProviderUnavailable = errors.New("image generation provider is not configured")

// ErrProviderError is the sentinel matched by every *ProviderError.
var ErrProviderError = errors.New("image generation provider error")

// ProviderError carries a non-2xx provider response for diagnostics.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("replicate responded %d: %s", e.StatusCode, e.Body)
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderError
}

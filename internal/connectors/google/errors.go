package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/listingsync/internal/core/domain"
)

// classify converts a Google API error to the upstream error taxonomy.
// 429 responses also pause the rate limiter.
func (c *Client) classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusTooManyRequests:
			c.limiter.RecordRateLimit(parseRetryAfter(gerr.Header))
			return &domain.UpstreamUnavailableError{Op: op, StatusCode: gerr.Code, Err: err}
		case gerr.Code >= http.StatusInternalServerError, gerr.Code == http.StatusRequestTimeout:
			return &domain.UpstreamUnavailableError{Op: op, StatusCode: gerr.Code, Err: err}
		default:
			return &domain.UpstreamRejectedError{
				Op:         op,
				StatusCode: gerr.Code,
				Code:       reason(gerr),
				Message:    gerr.Message,
			}
		}
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return &domain.UpstreamUnavailableError{Op: op, Err: err}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func reason(gerr *googleapi.Error) string {
	for _, item := range gerr.Errors {
		if item.Reason != "" {
			return item.Reason
		}
	}
	return ""
}

package httpclient

import (
	"errors"
	"net/http"

	"github.com/rickgao/publicapi-go/subscription"
)

// ClassifyError maps an error returned by Get/Post/Delete onto the
// subscription engine's error taxonomy, so a quote or order fetcher
// can just return err and let the poll scheduler apply the right
// retry policy.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return &subscription.FetchError{Class: subscription.ErrClassNetwork, Err: err}
	}

	class := subscription.ErrClassOther
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
		class = subscription.ErrClassAuth
	case apiErr.StatusCode == http.StatusTooManyRequests:
		class = subscription.ErrClassRateLimited
	case apiErr.StatusCode == http.StatusNotFound:
		class = subscription.ErrClassNotFound
	case apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity:
		class = subscription.ErrClassValidation
	case apiErr.StatusCode >= 500:
		class = subscription.ErrClassServer
	}

	return &subscription.FetchError{
		Class:      class,
		RetryAfter: apiErr.RetryAfter,
		Err:        apiErr,
	}
}

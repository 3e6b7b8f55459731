package fetcher

import (
	"context"
	"net/url"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// attempt is one request strategy in an ordered fallback chain. When fallOver is
// set, a failure moves on to the next attempt only if fallOver accepts the error.
type attempt struct {
	name     string
	endpoint string
	params   url.Values
	fallOver func(error) bool
}

// attemptResult is the outcome of one attempt. A malformed body is a success
// with an empty payload: callers substitute defaults instead of failing.
type attemptResult struct {
	attempt   attempt
	body      gjson.Result
	malformed bool
	err       error
}

func (r attemptResult) ok() bool {
	return r.err == nil
}

func (f *Fetcher) try(ctx context.Context, a attempt) attemptResult {
	res, err := f.httpClient.GetJSON(ctx, a.endpoint, a.params)
	switch {
	case err == nil:
		return attemptResult{attempt: a, body: res}
	case errors.Is(err, entities.ErrUpstreamMalformedPayload):
		f.log.Warn("upstream payload malformed, using empty default", "attempt", a.name)
		return attemptResult{attempt: a, malformed: true}
	default:
		return attemptResult{attempt: a, err: err}
	}
}

// runAttempts evaluates attempts in order and returns the first success. When all
// fail the error aggregates every attempt's failure.
func (f *Fetcher) runAttempts(ctx context.Context, kind string, attempts []attempt) (attemptResult, error) {
	var merr *multierror.Error

	for i, a := range attempts {
		if i > 0 {
			if ctx.Err() != nil {
				merr = multierror.Append(merr, ctx.Err())
				break
			}
			f.metrics.Fallbacks.WithLabelValues(kind, a.name).Inc()
			f.log.Info("falling back to next attempt", "kind", kind, "attempt", a.name)
		}

		r := f.try(ctx, a)
		if r.ok() {
			return r, nil
		}

		f.log.Warn("upstream attempt failed", "kind", kind, "attempt", a.name, "error", r.err)
		merr = multierror.Append(merr, errors.Wrap(r.err, a.name))

		if a.fallOver != nil && !a.fallOver(r.err) {
			break
		}
	}

	if merr == nil {
		return attemptResult{}, errors.New("no attempts configured")
	}

	merr.ErrorFormat = joinErrors

	return attemptResult{}, merr.ErrorOrNil()
}

// rejected reports whether the upstream answered with an error status. Timeouts
// and transport failures are not rejections.
func rejected(err error) bool {
	var httpErr *entities.UpstreamHTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode >= 400
}

func joinErrors(es []error) string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

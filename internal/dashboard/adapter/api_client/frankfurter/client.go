package frankfurter

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/langowen/fxdash/internal/dashboard/metrics"
	"github.com/langowen/fxdash/internal/entities"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

const (
	defaultUserAgent = "fxdash/1.0"
	maxErrorBody     = 256
)

type HTTPClient struct {
	client  *http.Client
	metrics *metrics.Metrics
}

// NewHTTPClient returns a client whose every call is bounded by timeout.
func NewHTTPClient(timeout time.Duration, m *metrics.Metrics) *HTTPClient {
	if m == nil {
		m = metrics.Nop()
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		metrics: m,
	}
}

// GetJSON issues a GET to endpoint with params and returns the body as a JSON object.
// It never retries.
func (c *HTTPClient) GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error) {
	const op = "frankfurter.GetJSON"

	u, err := url.Parse(endpoint)
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, op)
	}

	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	label := endpointLabel(u)
	start := time.Now()
	defer func() {
		c.metrics.UpstreamDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	res, outcome, err := c.do(ctx, u)
	c.metrics.UpstreamRequests.WithLabelValues(label, outcome).Inc()
	if err != nil {
		return gjson.Result{}, errors.Wrap(err, op)
	}

	return res, nil
}

func (c *HTTPClient) do(ctx context.Context, u *url.URL) (gjson.Result, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return gjson.Result{}, metrics.OutcomeError, errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return gjson.Result{}, metrics.OutcomeTimeout, errors.Wrap(entities.ErrUpstreamTimeout, err.Error())
		}
		return gjson.Result{}, metrics.OutcomeError, errors.Wrap(err, "api_client get")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return gjson.Result{}, metrics.OutcomeTimeout, errors.Wrap(entities.ErrUpstreamTimeout, err.Error())
		}
		return gjson.Result{}, metrics.OutcomeError, errors.Wrap(err, "read body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, metrics.OutcomeHTTPError, &entities.UpstreamHTTPError{
			StatusCode: resp.StatusCode,
			Body:       errorBody(body),
		}
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, metrics.OutcomeMalformed, entities.ErrUpstreamMalformedPayload
	}

	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return gjson.Result{}, metrics.OutcomeMalformed, entities.ErrUpstreamMalformedPayload
	}

	return res, metrics.OutcomeOK, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorBody prefers the upstream {"message": ...} or {"error": ...} text.
func errorBody(body []byte) string {
	if gjson.ValidBytes(body) {
		res := gjson.ParseBytes(body)
		for _, field := range []string{"message", "error"} {
			if v := res.Get(field); v.Type == gjson.String && v.Str != "" {
				return v.Str
			}
		}
	}

	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}

func endpointLabel(u *url.URL) string {
	p := path.Base(u.Path)
	switch {
	case strings.Contains(p, ".."):
		return "timeseries"
	case p == "/" || p == ".":
		return "root"
	default:
		return p
	}
}

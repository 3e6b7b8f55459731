package fetcher

import (
	"context"
	"net/url"

	"github.com/tidwall/gjson"
)

type HTTPClient interface {
	GetJSON(ctx context.Context, endpoint string, params url.Values) (gjson.Result, error)
}

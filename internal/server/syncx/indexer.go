package syncx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/sethvargo/go-retry"
)

// HTTPIndexer posts approved records to the search index. Connection errors
// and 5xx replies are retried with exponential backoff until ctx ends.
type HTTPIndexer struct {
	url        string
	client     *http.Client
	maxRetries uint64
	base       time.Duration
}

func NewHTTPIndexer(url string, client *http.Client) *HTTPIndexer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPIndexer{url: url, client: client, maxRetries: 3, base: 200 * time.Millisecond}
}

func (x *HTTPIndexer) Index(ctx context.Context, r *models.Record) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(x.maxRetries, retry.NewExponential(x.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := x.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("index replied %s", resp.Status))
		case resp.StatusCode >= 300:
			return fmt.Errorf("index replied %s", resp.Status)
		}
		return nil
	})
}

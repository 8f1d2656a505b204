package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/golang/glog"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"

	e "github.com/ledgerline/ledgerline/errors"
)

// Client talks to the upstream bank API on behalf of the proxy. Every call
// carries an explicit timeout; a call that exceeds it is reported as
// RemoteTimeout, never as a hang.
type Client struct {
	baseURL   string
	accountID string
	hc        *http.Client
	timeout   time.Duration

	// Statement responses are bulky and change rarely, so they are held in
	// an in-process TTL cache. The balance deliberately is not: its caching
	// is owned by the shared-record policy.
	responses *gocache.Cache
}

type clearedBalance struct {
	MinorUnits int64 `json:"minorUnits"`
}

type balanceResponse struct {
	ClearedBalance clearedBalance `json:"clearedBalance"`
}

// NewClient builds an authenticated upstream client. The personal access
// token is sent as a bearer Authorization header on every request.
func NewClient(
	baseURL string,
	accountID string,
	token string,
	timeout time.Duration,
	responseTTL time.Duration,
) *Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	})
	hc := oauth2.NewClient(context.Background(), src)
	hc.Timeout = timeout

	return &Client{
		baseURL:   baseURL,
		accountID: accountID,
		hc:        hc,
		timeout:   timeout,
		responses: gocache.New(responseTTL, 2*responseTTL),
	}
}

// FetchBalance implements the remote fetch collaborator contract for the
// cache policy: the cleared balance in minor units plus the unix second it
// was observed, or a taxonomy error.
func (c *Client) FetchBalance(ctx context.Context) (int64, int64, error) {
	endpoint := fmt.Sprintf(
		"%s/api/v2/accounts/%s/balance",
		c.baseURL,
		c.accountID,
	)

	body, err := c.get(ctx, endpoint, "application/json")
	if err != nil {
		return 0, 0, err
	}

	var parsed balanceResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, 0, e.New(
			"bank.FetchBalance",
			e.RemoteUnavailable,
			fmt.Sprintf("malformed balance response: %v", err),
		)
	}

	return parsed.ClearedBalance.MinorUnits, time.Now().Unix(), nil
}

// AvailablePeriods proxies the upstream statement-period listing, served
// from the response cache when possible.
func (c *Client) AvailablePeriods(ctx context.Context) (json.RawMessage, error) {
	const key = "available-periods"
	if cached, ok := c.responses.Get(key); ok {
		return cached.(json.RawMessage), nil
	}

	endpoint := fmt.Sprintf(
		"%s/api/v2/accounts/%s/statement/available-periods",
		c.baseURL,
		c.accountID,
	)

	body, err := c.get(ctx, endpoint, "application/json")
	if err != nil {
		return nil, err
	}

	raw := json.RawMessage(body)
	c.responses.Set(key, raw, gocache.DefaultExpiration)
	return raw, nil
}

// StatementCSV proxies the raw statement CSV for the given date range,
// served from the response cache when possible. Dates are YYYY-MM-DD.
func (c *Client) StatementCSV(ctx context.Context, start, end string) (string, error) {
	key := "statement:" + start + ":" + end
	if cached, ok := c.responses.Get(key); ok {
		return cached.(string), nil
	}

	endpoint := fmt.Sprintf(
		"%s/api/v2/accounts/%s/statement/downloadForDateRange?start=%s&end=%s",
		c.baseURL,
		c.accountID,
		url.QueryEscape(start),
		url.QueryEscape(end),
	)

	body, err := c.get(ctx, endpoint, "text/csv")
	if err != nil {
		return "", err
	}

	text := string(body)
	c.responses.Set(key, text, gocache.DefaultExpiration)
	return text, nil
}

// get performs one upstream GET and maps the outcome onto the error
// taxonomy: 429 becomes RemoteRateLimited with the Retry-After hint, an
// exceeded deadline becomes RemoteTimeout, everything else unexpected
// becomes RemoteUnavailable.
func (c *Client) get(ctx context.Context, endpoint string, accept string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, e.New(
			"bank.get",
			e.RemoteUnavailable,
			fmt.Sprintf("build request: %v", err),
		)
	}
	req.Header.Set("accept", accept)

	resp, err := c.hc.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, e.New(
				"bank.get",
				e.RemoteTimeout,
				fmt.Sprintf("upstream timed out after %s", c.timeout),
			)
		}
		return nil, e.New(
			"bank.get",
			e.RemoteUnavailable,
			fmt.Sprintf("upstream request failed: %v", err),
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		if glog.V(2) {
			glog.Infof("upstream rate limited, retry after %ds", retryAfter)
		}
		return nil, e.RateLimited(
			"bank.get",
			retryAfter,
			fmt.Sprintf("upstream rate limited, retry after %ds", retryAfter),
		)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, e.New(
			"bank.get",
			e.RemoteUnavailable,
			fmt.Sprintf("upstream returned HTTP %d", resp.StatusCode),
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, e.New(
			"bank.get",
			e.RemoteUnavailable,
			fmt.Sprintf("read upstream response: %v", err),
		)
	}

	return body, nil
}

// defaultRetryAfterSecs is used when the upstream sends a 429 without a
// parseable Retry-After header.
const defaultRetryAfterSecs int64 = 60

func parseRetryAfter(header string) int64 {
	if header == "" {
		return defaultRetryAfterSecs
	}
	secs, err := strconv.ParseInt(header, 10, 64)
	if err != nil || secs < 0 {
		return defaultRetryAfterSecs
	}
	return secs
}

func isTimeout(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}
	if uerr, ok := err.(*url.Error); ok {
		return uerr.Timeout() || uerr.Err == context.DeadlineExceeded
	}
	return false
}

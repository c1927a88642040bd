package qbo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/report"
)

// DefaultPageSize is the fixed page size used for entity queries.
const DefaultPageSize = 1000

// glColumns is the fixed column set requested from the General Ledger
// report; the parser depends on this order.
var glColumns = []string{
	"tx_date", "txn_type", "credit_amt", "debt_amt",
	"cust_name", "vend_name", "memo", "currency",
	"exch_rate", "debt_home_amt", "credit_home_amt",
}

// Session issues authorized GET requests against the external API and can
// refresh its credentials when they expire. Token acquisition itself lives
// outside the engine.
type Session interface {
	Get(ctx context.Context, rawurl string, params url.Values) (*http.Response, error)
	Refresh(ctx context.Context) error
}

// AuthError reports an authorization failure that persisted through one
// credential refresh.
type AuthError struct {
	URL string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authorization expired and refresh did not recover: %s", e.URL)
}

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Status, e.URL)
}

// Client fetches entity collections and the General Ledger report.
type Client struct {
	session      Session
	endpoint     string
	companyID    string
	pageSize     int
	minorVersion int
	log          *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithPageSize overrides the query page size.
func WithPageSize(n int) Option {
	return func(c *Client) { c.pageSize = n }
}

// WithMinorVersion overrides the API minor version.
func WithMinorVersion(v int) Option {
	return func(c *Client) { c.minorVersion = v }
}

// NewClient creates a Client for one company's API surface.
func NewClient(session Session, endpoint, companyID string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		session:      session,
		endpoint:     strings.TrimRight(endpoint, "/"),
		companyID:    companyID,
		pageSize:     DefaultPageSize,
		minorVersion: 73,
		log:          log.Named("qbo"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count returns the number of records of an entity kind.
func (c *Client) Count(ctx context.Context, entity string) (int, error) {
	params := url.Values{}
	params.Set("query", fmt.Sprintf("SELECT COUNT(*) FROM %s", entity))
	params.Set("minorversion", strconv.Itoa(c.minorVersion))

	body, err := c.get(ctx, c.queryURL(), params)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", entity, err)
	}

	var env struct {
		QueryResponse struct {
			TotalCount int `json:"totalCount"`
		} `json:"QueryResponse"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, fmt.Errorf("decoding %s count: %w", entity, err)
	}
	return env.QueryResponse.TotalCount, nil
}

// FetchAll retrieves every record of an entity kind in fixed-size pages,
// concatenated in page order. The result is raw JSON; callers decode per
// kind.
func (c *Client) FetchAll(ctx context.Context, entity string) ([]json.RawMessage, error) {
	count, err := c.Count(ctx, entity)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	for start := 1; start <= count; start += c.pageSize {
		params := url.Values{}
		params.Set("query", fmt.Sprintf("SELECT * FROM %s STARTPOSITION %d MAXRESULTS %d", entity, start, c.pageSize))
		params.Set("minorversion", strconv.Itoa(c.minorVersion))

		body, err := c.get(ctx, c.queryURL(), params)
		if err != nil {
			return nil, fmt.Errorf("fetching %s page at %d: %w", entity, start, err)
		}

		var env struct {
			QueryResponse map[string]json.RawMessage `json:"QueryResponse"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, fmt.Errorf("decoding %s page at %d: %w", entity, start, err)
		}
		if raw, ok := env.QueryResponse[entity]; ok {
			var page []json.RawMessage
			if err := json.Unmarshal(raw, &page); err != nil {
				return nil, fmt.Errorf("decoding %s records at %d: %w", entity, start, err)
			}
			records = append(records, page...)
		}
	}

	c.log.Info("fetched entity collection",
		zap.String("entity", entity),
		zap.Int("count", len(records)))
	return records, nil
}

// GeneralLedger fetches the full-history General Ledger report tree.
func (c *Client) GeneralLedger(ctx context.Context) (*report.Report, error) {
	params := url.Values{}
	params.Set("columns", strings.Join(glColumns, ","))
	params.Set("date_macro", "All")
	params.Set("minorversion", strconv.Itoa(c.minorVersion))

	rawurl := fmt.Sprintf("%s/company/%s/reports/GeneralLedger", c.endpoint, c.companyID)
	body, err := c.get(ctx, rawurl, params)
	if err != nil {
		return nil, fmt.Errorf("fetching general ledger report: %w", err)
	}

	var r report.Report
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("decoding general ledger report: %w", err)
	}
	return &r, nil
}

func (c *Client) queryURL() string {
	return fmt.Sprintf("%s/company/%s/query", c.endpoint, c.companyID)
}

// get issues an authorized GET. A 401 triggers exactly one credential
// refresh and retry; a second 401 is a terminal AuthError.
func (c *Client) get(ctx context.Context, rawurl string, params url.Values) ([]byte, error) {
	refreshed := false
	for {
		resp, err := c.session.Get(ctx, rawurl, params)
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized && !refreshed:
			c.log.Info("authorization expired, refreshing credentials", zap.String("url", rawurl))
			if err := c.session.Refresh(ctx); err != nil {
				return nil, fmt.Errorf("refreshing credentials: %w", err)
			}
			refreshed = true
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, &AuthError{URL: rawurl}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			return nil, &StatusError{URL: rawurl, Status: resp.StatusCode, Body: string(body)}
		default:
			return body, nil
		}
	}
}

package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/gridops/observe"
	"github.com/jonwraymond/gridops/resilience"
)

const (
	defaultEndpoint      = "https://sheets.googleapis.com"
	defaultTokenEndpoint = "https://oauth2.googleapis.com/token"
	maxResponseBytes     = 8 << 20
)

// ValueRange is one contiguous block of cells, addressed A1-style.
type ValueRange struct {
	Range  string     `json:"range"`
	Values [][]string `json:"values"`
}

// Stats reports cumulative call activity.
type Stats struct {
	APICalls        int64 `json:"api_calls"`
	SuccessfulCalls int64 `json:"successful_calls"`
	FailedCalls     int64 `json:"failed_calls"`
}

// Client is the read/write surface of the remote grid store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Blocking: every call acquires a rate-limit slot first and may block.
// - Errors: failures surface only after the retry budget is exhausted.
type Client interface {
	// BatchGet reads many ranges in one network call and returns the rows
	// keyed by the requested range.
	BatchGet(ctx context.Context, ranges []string) (map[string][][]string, error)

	// BatchUpdate writes many ranges in one network call.
	BatchUpdate(ctx context.Context, data []ValueRange) error

	// SingleCell reads one cell from the metadata table.
	SingleCell(ctx context.Context, sheet, cell string) (string, error)

	// Stats returns cumulative call statistics.
	Stats() Stats
}

// Acquirer admits one outbound call, blocking until a grant is legal.
type Acquirer interface {
	Acquire(ctx context.Context) (time.Time, error)
}

// Config configures the grid client.
type Config struct {
	// InventorySpreadsheetID addresses the document holding user rows.
	// Required.
	InventorySpreadsheetID string

	// MetadataSpreadsheetID addresses the document holding the id mapping.
	// Default: InventorySpreadsheetID
	MetadataSpreadsheetID string

	// Endpoint is the base URL of the values API.
	// Default: https://sheets.googleapis.com
	Endpoint string

	// TokenEndpoint is where assertions are exchanged for bearer tokens.
	// Default: the credentials' token_uri, else the public auth endpoint.
	TokenEndpoint string

	// Credentials is the service-account key. Required.
	Credentials *Credentials

	// Layout describes the table geometry. Zero fields take defaults.
	Layout Layout

	// RefreshInterval bounds the age of a session before it is re-minted.
	// Default: 1 hour
	RefreshInterval time.Duration

	// MaxConnectionAttempts bounds attempts per call, including the first.
	// Default: 3
	MaxConnectionAttempts int

	// RetryInitialDelay is the backoff before the first retry; subsequent
	// delays double.
	// Default: 2s
	RetryInitialDelay time.Duration

	// HTTPClient overrides the transport.
	// Default: 30s-timeout client
	HTTPClient *http.Client

	// Limiter admits outbound calls.
	// Default: a fresh sliding-window limiter with default settings
	Limiter Acquirer

	Logger  observe.Logger
	Tracer  observe.Tracer
	Metrics *observe.Metrics
}

// GridClient talks to a Sheets-style values API over HTTP, holding one
// bearer-token session that is re-minted when older than RefreshInterval or
// rejected by the server.
type GridClient struct {
	config Config
	layout Layout
	http   *http.Client
	retry  *resilience.Retry

	sessionMu   sync.Mutex
	token       string
	refreshedAt time.Time

	statsMu sync.Mutex
	stats   Stats
}

var _ Client = (*GridClient)(nil)

// NewGridClient creates a client with defaults applied.
func NewGridClient(config Config) (*GridClient, error) {
	if config.InventorySpreadsheetID == "" {
		return nil, ErrMissingSpreadsheetID
	}
	if config.Credentials == nil {
		return nil, ErrMissingCredentials
	}

	// Apply defaults
	if config.MetadataSpreadsheetID == "" {
		config.MetadataSpreadsheetID = config.InventorySpreadsheetID
	}
	if config.Endpoint == "" {
		config.Endpoint = defaultEndpoint
	}
	config.Endpoint = strings.TrimRight(config.Endpoint, "/")
	if config.TokenEndpoint == "" {
		config.TokenEndpoint = config.Credentials.TokenURI
	}
	if config.TokenEndpoint == "" {
		config.TokenEndpoint = defaultTokenEndpoint
	}
	if config.RefreshInterval <= 0 {
		config.RefreshInterval = time.Hour
	}
	if config.MaxConnectionAttempts <= 0 {
		config.MaxConnectionAttempts = 3
	}
	if config.RetryInitialDelay <= 0 {
		config.RetryInitialDelay = 2 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.Limiter == nil {
		config.Limiter = resilience.NewLimiter(resilience.LimiterConfig{})
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	config.Logger = config.Logger.WithComponent("store")
	if config.Tracer == nil {
		config.Tracer = observe.NopTracer()
	}

	logger := config.Logger
	retry := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  config.MaxConnectionAttempts,
		InitialDelay: config.RetryInitialDelay,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn(context.Background(), "store call failed, retrying",
				observe.F("attempt", attempt),
				observe.F("delay", delay.String()),
				observe.F("error", err.Error()),
			)
		},
	})

	return &GridClient{
		config: config,
		layout: config.Layout.Normalize(),
		http:   config.HTTPClient,
		retry:  retry,
	}, nil
}

// Layout returns the effective table geometry.
func (c *GridClient) Layout() Layout {
	return c.layout
}

// BatchGet reads many ranges in one rate-limited call. Ranges are routed to
// the inventory or metadata document by their sheet prefix.
func (c *GridClient) BatchGet(ctx context.Context, ranges []string) (map[string][][]string, error) {
	if len(ranges) == 0 {
		return map[string][][]string{}, nil
	}

	var inv, meta []string
	for _, r := range ranges {
		if c.layout.IsInventoryRange(r) {
			inv = append(inv, r)
		} else {
			meta = append(meta, r)
		}
	}

	out := make(map[string][][]string, len(ranges))
	err := c.call(ctx, "batch_get", func(ctx context.Context, token string) error {
		if len(inv) > 0 {
			if err := c.batchGetOne(ctx, token, c.config.InventorySpreadsheetID, inv, out); err != nil {
				return err
			}
		}
		if len(meta) > 0 {
			if err := c.batchGetOne(ctx, token, c.config.MetadataSpreadsheetID, meta, out); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type batchUpdateRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []ValueRange `json:"data"`
}

// BatchUpdate writes many inventory ranges in one rate-limited call.
func (c *GridClient) BatchUpdate(ctx context.Context, data []ValueRange) error {
	if len(data) == 0 {
		return nil
	}

	payload := batchUpdateRequest{ValueInputOption: "RAW", Data: data}
	return c.call(ctx, "batch_update", func(ctx context.Context, token string) error {
		endpoint := c.valuesURL(c.config.InventorySpreadsheetID, "values:batchUpdate")
		return c.doJSON(ctx, http.MethodPost, "batch_update", endpoint, token, payload, nil)
	})
}

// SingleCell reads one cell from the metadata document. A cell the server
// reports as empty yields "" without error.
func (c *GridClient) SingleCell(ctx context.Context, sheet, cell string) (string, error) {
	rangeRef := fmt.Sprintf("%s!%s", sheet, cell)

	var value string
	err := c.call(ctx, "single_cell", func(ctx context.Context, token string) error {
		endpoint := c.valuesURL(c.config.MetadataSpreadsheetID, "values/"+url.PathEscape(rangeRef))
		var resp ValueRange
		if err := c.doJSON(ctx, http.MethodGet, "single_cell", endpoint, token, nil, &resp); err != nil {
			return err
		}
		value = ""
		if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
			value = resp.Values[0][0]
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return value, nil
}

// Stats returns cumulative call statistics.
func (c *GridClient) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// call runs one store operation under the limiter, session, retry, and
// telemetry plumbing shared by every endpoint. Each attempt acquires its own
// rate-limit slot and counts as one API call in the statistics.
func (c *GridClient) call(ctx context.Context, op string, fn func(ctx context.Context, token string) error) error {
	ctx, span := c.config.Tracer.StartSpan(ctx, observe.OpMeta{Component: "store", Op: op})

	err := c.retry.Execute(ctx, func(ctx context.Context) error {
		if _, err := c.config.Limiter.Acquire(ctx); err != nil {
			return err
		}

		start := time.Now()
		err := c.attempt(ctx, fn)
		c.recordAttempt(err)
		c.config.Metrics.RecordStoreCall(ctx, op, time.Since(start), err)
		return err
	})

	c.config.Tracer.EndSpan(span, err)
	return err
}

// attempt performs one session-backed request. A rejected session is
// discarded so the next attempt re-mints it.
func (c *GridClient) attempt(ctx context.Context, fn func(ctx context.Context, token string) error) error {
	token, err := c.ensureSession(ctx)
	if err != nil {
		return err
	}

	err = fn(ctx, token)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Unauthorized() {
			c.invalidateSession()
		}
	}
	return err
}

// ensureSession returns the current bearer token, minting a fresh one when
// absent or older than RefreshInterval.
func (c *GridClient) ensureSession(ctx context.Context) (string, error) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.token != "" && time.Since(c.refreshedAt) < c.config.RefreshInterval {
		return c.token, nil
	}

	assertion, err := c.config.Credentials.Assertion(c.config.TokenEndpoint, time.Now(), nil)
	if err != nil {
		return "", err
	}

	token, err := exchangeToken(ctx, c.http, c.config.TokenEndpoint, assertion)
	if err != nil {
		return "", err
	}

	c.token = token
	c.refreshedAt = time.Now()
	c.config.Logger.Info(ctx, "store session refreshed")
	return token, nil
}

func (c *GridClient) invalidateSession() {
	c.sessionMu.Lock()
	c.token = ""
	c.sessionMu.Unlock()
}

func (c *GridClient) recordAttempt(err error) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	c.stats.APICalls++
	if err == nil {
		c.stats.SuccessfulCalls++
	} else {
		c.stats.FailedCalls++
	}
}

func (c *GridClient) valuesURL(spreadsheetID, suffix string) string {
	return fmt.Sprintf("%s/v4/spreadsheets/%s/%s", c.config.Endpoint, spreadsheetID, suffix)
}

type batchGetResponse struct {
	ValueRanges []ValueRange `json:"valueRanges"`
}

// batchGetOne reads a set of ranges from one document. The server returns
// value ranges in request order, so results map back positionally.
func (c *GridClient) batchGetOne(ctx context.Context, token, spreadsheetID string, ranges []string, out map[string][][]string) error {
	q := url.Values{}
	for _, r := range ranges {
		q.Add("ranges", r)
	}
	q.Set("majorDimension", "ROWS")
	endpoint := c.valuesURL(spreadsheetID, "values:batchGet") + "?" + q.Encode()

	var resp batchGetResponse
	if err := c.doJSON(ctx, http.MethodGet, "batch_get", endpoint, token, nil, &resp); err != nil {
		return err
	}

	for i, vr := range resp.ValueRanges {
		if i < len(ranges) {
			out[ranges[i]] = vr.Values
		}
	}
	return nil
}

// doJSON performs one authenticated request and decodes the JSON response
// into result when non-nil.
func (c *GridClient) doJSON(ctx context.Context, method, op, endpoint, token string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("store %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("store %s: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("store %s: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("store %s: read response: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Op: op, Code: resp.StatusCode}
	}

	if result != nil {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("store %s: decode response: %w", op, err)
		}
	}
	return nil
}

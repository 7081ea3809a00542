// Package eastmoney fetches official fund net asset values from Eastmoney (Tiantian Fund).
//
// The pingzhongdata endpoint serves a JavaScript file that assigns a handful of globals,
// among them the fund name (fS_name) and the NAV history (Data_netWorthTrend). The client
// extracts both with a pair of regular expressions instead of evaluating the script.
package eastmoney

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/aristath/alphaseeker/internal/domain"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the public Tiantian Fund host
	DefaultBaseURL = "https://fund.eastmoney.com"

	// SourceName identifies quotes produced by this client
	SourceName = "eastmoney"

	maxBodyBytes = 8 << 20
)

// ErrUnsupportedCode is returned for symbols that are not 6-digit fund codes
var ErrUnsupportedCode = errors.New("not a 6-digit fund code")

var (
	fundCodePattern = regexp.MustCompile(`^\d{6}$`)
	namePattern     = regexp.MustCompile(`fS_name\s*=\s*"([^"]*)"`)
	trendPattern    = regexp.MustCompile(`(?s)Data_netWorthTrend\s*=\s*(\[.*?\])\s*;`)
)

// Fund is the latest official NAV of a fund
type Fund struct {
	Code string
	Name string
	NAV  float64
	AsOf time.Time
}

type trendPoint struct {
	X int64       `json:"x"`
	Y json.Number `json:"y"`
}

// Client talks to the pingzhongdata endpoint.
// Requests are strictly sequential with a politeness delay between them.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	delay      time.Duration
	log        zerolog.Logger

	// turn is a single slot semaphore; holding it guards lastRequest
	turn        chan struct{}
	lastRequest time.Time
}

// NewClient creates a new Eastmoney client.
// timeout bounds each request; delay is the minimum gap between two requests.
func NewClient(baseURL string, timeout, delay time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    timeout,
		delay:      delay,
		log:        log.With().Str("client", "eastmoney").Logger(),
		turn:       make(chan struct{}, 1),
	}
}

// IsFundCode reports whether code looks like a mainland fund code
func IsFundCode(code string) bool {
	return fundCodePattern.MatchString(code)
}

// Resolve implements domain.PriceResolver.
// Non-fund symbols and funds without a usable NAV resolve to nil.
func (c *Client) Resolve(ctx context.Context, symbol string) (*domain.PriceQuote, error) {
	code := domain.NormalizeSymbol(symbol)
	if !IsFundCode(code) {
		return nil, nil
	}

	fund, err := c.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}
	if fund == nil {
		return nil, nil
	}

	return &domain.PriceQuote{
		Symbol: fund.Code,
		Name:   fund.Name,
		Price:  fund.NAV,
		Source: SourceName,
		AsOf:   fund.AsOf,
	}, nil
}

// Lookup fetches the fund name and the last official NAV.
// Returns nil without error when the fund is unknown upstream or carries no positive NAV.
func (c *Client) Lookup(ctx context.Context, code string) (*Fund, error) {
	if !IsFundCode(code) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCode, code)
	}

	select {
	case c.turn <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-c.turn }()

	if err := c.waitTurn(ctx); err != nil {
		return nil, err
	}
	defer func() { c.lastRequest = time.Now() }()

	body, status, err := c.fetch(ctx, code)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		c.log.Debug().Str("code", code).Msg("Fund not found")
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("eastmoney returned status %d for %s", status, code)
	}

	fund, err := parseScript(code, body)
	if err != nil {
		c.log.Warn().Err(err).Str("code", code).Msg("Failed to parse pingzhongdata")
		return nil, nil
	}

	c.log.Debug().
		Str("code", code).
		Str("name", fund.Name).
		Float64("nav", fund.NAV).
		Msg("Fetched NAV")

	return fund, nil
}

func (c *Client) waitTurn(ctx context.Context) error {
	if c.lastRequest.IsZero() || c.delay <= 0 {
		return ctx.Err()
	}
	wait := time.Until(c.lastRequest.Add(c.delay))
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) fetch(ctx context.Context, code string) ([]byte, int, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	// The v parameter defeats intermediate caches
	url := fmt.Sprintf("%s/pingzhongdata/%s.js?v=%d", c.baseURL, code, time.Now().UnixMilli())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Referer", c.baseURL+"/")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", code, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func parseScript(code string, body []byte) (*Fund, error) {
	nameMatch := namePattern.FindSubmatch(body)
	if nameMatch == nil || len(nameMatch[1]) == 0 {
		return nil, errors.New("fS_name missing")
	}

	trendMatch := trendPattern.FindSubmatch(body)
	if trendMatch == nil {
		return nil, errors.New("Data_netWorthTrend missing")
	}

	var trend []trendPoint
	if err := json.Unmarshal(trendMatch[1], &trend); err != nil {
		return nil, fmt.Errorf("failed to decode Data_netWorthTrend: %w", err)
	}
	if len(trend) == 0 {
		return nil, errors.New("Data_netWorthTrend is empty")
	}

	latest := trend[len(trend)-1]
	nav, err := latest.Y.Float64()
	if err != nil || nav <= 0 {
		return nil, fmt.Errorf("invalid NAV %q", latest.Y)
	}

	fund := &Fund{
		Code: code,
		Name: string(nameMatch[1]),
		NAV:  nav,
	}
	if latest.X > 0 {
		fund.AsOf = time.UnixMilli(latest.X).UTC()
	}
	return fund, nil
}

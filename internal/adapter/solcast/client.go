package solcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/berfenger/solcast2mqtt/internal/config"
	"github.com/berfenger/solcast2mqtt/internal/core/forecast"
	"github.com/berfenger/solcast2mqtt/internal/core/port"
	"io"
	"net/http"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"go.uber.org/zap"
)

const (
	DEFAULT_TIMEOUT = 10 * time.Second
	// responses are a few KiB; anything larger is not a forecast
	MAX_RESPONSE_BYTES = 4 << 20
)

var ErrForecastUnavailable = errors.New("forecast unavailable")

type response struct {
	Forecasts      *[]forecast.Record `json:"forecasts"`
	ResponseStatus *struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	} `json:"response_status"`
}

// Client fetches rooftop site forecasts from the Solcast API.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg config.SolcastConfig, logger *zap.Logger) *Client {
	timeout := DEFAULT_TIMEOUT
	if cfg.TimeoutMillis > 0 {
		timeout = time.Duration(cfg.TimeoutMillis) * time.Millisecond
	}
	return &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "solcast")),
	}
}

func (c *Client) Fetch(ctx context.Context) ([]forecast.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", fmt.Sprintf("solcast2mqtt/%s", versioninfo.Short()))
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.Debug("solcast: fetch forecast")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MAX_RESPONSE_BYTES))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForecastUnavailable, err)
	}
	return c.decode(resp.StatusCode, body)
}

func (c *Client) decode(status int, body []byte) ([]forecast.Record, error) {
	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: http %d: %w", ErrForecastUnavailable, status, err)
	}
	if r.Forecasts != nil {
		for _, rec := range *r.Forecasts {
			if _, err := forecast.ParsePeriodEnd(rec.PeriodEnd); err != nil {
				return nil, err
			}
		}
		c.logger.Sugar().Debugf("solcast: %d records", len(*r.Forecasts))
		return *r.Forecasts, nil
	}
	if r.ResponseStatus != nil && r.ResponseStatus.ErrorCode != "" {
		return nil, fmt.Errorf("%w: solcast error %s: %s", ErrForecastUnavailable, r.ResponseStatus.ErrorCode, r.ResponseStatus.Message)
	}
	return nil, fmt.Errorf("%w: unidentified response (http %d)", ErrForecastUnavailable, status)
}

// ensure interface compliance
var _ port.ForecastProvider = (*Client)(nil)

package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/vigilstack/vigil-incident/internal/cache"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/utils"
)

// TelemetryClient wraps the telemetry backend's log and metric query APIs.
type TelemetryClient struct {
	baseURL     string
	logsPath    string
	metricsPath string
	logGroup    string
	httpClient  *http.Client
	cache       cache.Provider
	windowTTL   time.Duration
}

// NewTelemetryClient constructs a client targeting the configured backend.
// The cache provider may be nil; fetched windows are then never cached.
func NewTelemetryClient(baseURL, logsPath, metricsPath, logGroup string, timeout time.Duration, cacheProvider cache.Provider, windowTTL time.Duration) *TelemetryClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &TelemetryClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		logsPath:    logsPath,
		metricsPath: metricsPath,
		logGroup:    logGroup,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:     cacheProvider,
		windowTTL: windowTTL,
	}
}

// FetchLogs queries the backend for raw log events in [start, end).
func (c *TelemetryClient) FetchLogs(ctx context.Context, start, end time.Time) ([]models.LogEvent, error) {
	if c == nil {
		return nil, fmt.Errorf("telemetry client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("telemetry base URL not configured")
	}

	cacheKey := c.windowKey("logs", start, end)
	if data, err := c.cache.Get(ctx, cacheKey); err == nil {
		var cached []models.LogEvent
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	payload := map[string]interface{}{
		"log_group": c.logGroup,
		"start":     start.Format(time.RFC3339),
		"end":       end.Format(time.RFC3339),
	}

	var response struct {
		Events []struct {
			Message   string `json:"message"`
			Timestamp int64  `json:"timestamp"`
			Stream    string `json:"log_stream"`
		} `json:"events"`
	}

	if err := c.postJSON(ctx, c.logsURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("telemetry logs request failed: %w", err)
	}

	events := make([]models.LogEvent, 0, len(response.Events))
	for _, e := range response.Events {
		events = append(events, models.LogEvent{
			Message:   e.Message,
			Timestamp: e.Timestamp,
			Stream:    e.Stream,
		})
	}

	c.cacheWindow(ctx, cacheKey, events)
	return events, nil
}

// FetchMetrics queries the backend for aggregated datapoints per category in
// [start, end). Categories the backend has no data for are absent from the
// returned map.
func (c *TelemetryClient) FetchMetrics(ctx context.Context, start, end time.Time, categories []models.MetricCategory) (map[models.MetricCategory][]models.Datapoint, error) {
	if c == nil {
		return nil, fmt.Errorf("telemetry client not initialised")
	}
	if c.baseURL == "" {
		return nil, fmt.Errorf("telemetry base URL not configured")
	}

	cacheKey := c.windowKey("metrics", start, end)
	if data, err := c.cache.Get(ctx, cacheKey); err == nil {
		var cached map[models.MetricCategory][]models.Datapoint
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	names := make([]string, 0, len(categories))
	for _, cat := range categories {
		names = append(names, string(cat))
	}
	payload := map[string]interface{}{
		"categories": names,
		"start":      start.Format(time.RFC3339),
		"end":        end.Format(time.RFC3339),
	}

	var response struct {
		Series map[string][]struct {
			Timestamp time.Time `json:"timestamp"`
			Maximum   float64   `json:"maximum"`
			Sum       float64   `json:"sum"`
		} `json:"series"`
	}

	if err := c.postJSON(ctx, c.metricsURL(), payload, &response); err != nil {
		return nil, fmt.Errorf("telemetry metrics request failed: %w", err)
	}

	series := make(map[models.MetricCategory][]models.Datapoint, len(response.Series))
	for name, points := range response.Series {
		converted := make([]models.Datapoint, 0, len(points))
		for _, p := range points {
			converted = append(converted, models.Datapoint{
				Timestamp: p.Timestamp,
				Maximum:   p.Maximum,
				Sum:       p.Sum,
			})
		}
		series[models.MetricCategory(name)] = converted
	}

	c.cacheWindow(ctx, cacheKey, series)
	return series, nil
}

func (c *TelemetryClient) cacheWindow(ctx context.Context, key string, value any) {
	if c.windowTTL <= 0 || key == "" {
		return
	}
	if data, err := json.Marshal(value); err == nil {
		_ = c.cache.Set(ctx, key, data, c.windowTTL)
	}
}

func (c *TelemetryClient) windowKey(kind string, start, end time.Time) string {
	return fmt.Sprintf("telemetry:%s:%s:%d:%d", kind, c.logGroup, start.Unix(), end.Unix())
}

func (c *TelemetryClient) logsURL() string    { return c.resolvePath(c.logsPath) }
func (c *TelemetryClient) metricsURL() string { return c.resolvePath(c.metricsPath) }

func (c *TelemetryClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *TelemetryClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("empty endpoint")
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return utils.NewAppError("telemetry.query", fmt.Sprintf("backend returned %s", resp.Status), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

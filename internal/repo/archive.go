package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vigilstack/vigil-incident/internal/cache"
	"github.com/vigilstack/vigil-incident/internal/models"
	"github.com/vigilstack/vigil-incident/internal/utils"
)

// ArchiveClient persists assembled incidents to an external archive service
// and reads them back for the API. An empty endpoint disables persistence.
type ArchiveClient struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cache      cache.Provider
	listTTL    time.Duration
}

// NewArchiveClient constructs an archive client. The cache provider may be
// nil.
func NewArchiveClient(endpoint, apiKey string, timeout time.Duration, cacheProvider cache.Provider, listTTL time.Duration) *ArchiveClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &ArchiveClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:   cacheProvider,
		listTTL: listTTL,
	}
}

// Enabled reports whether an archive endpoint is configured.
func (r *ArchiveClient) Enabled() bool {
	return r != nil && r.endpoint != ""
}

// StoreIncident writes one incident record to the archive.
func (r *ArchiveClient) StoreIncident(ctx context.Context, incident models.Incident) error {
	if r == nil {
		return fmt.Errorf("archive client not initialised")
	}
	if r.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("marshal incident: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v1/incidents", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return utils.NewAppError("archive.store", strings.TrimSpace(string(data)), nil)
	}

	// Stored incidents invalidate the cached listing.
	_ = r.cache.Del(ctx, r.listKey())
	return nil
}

// StorePatterns writes mined failure signatures to the archive so they
// survive engine restarts. A disabled archive makes this a no-op.
func (r *ArchiveClient) StorePatterns(ctx context.Context, patterns []models.IncidentPattern) error {
	if r == nil {
		return fmt.Errorf("archive client not initialised")
	}
	if r.endpoint == "" || len(patterns) == 0 {
		return nil
	}

	body, err := json.Marshal(struct {
		Patterns []models.IncidentPattern `json:"patterns"`
	}{Patterns: patterns})
	if err != nil {
		return fmt.Errorf("marshal patterns: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint+"/v1/patterns", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return utils.NewAppError("archive.patterns", strings.TrimSpace(string(data)), nil)
	}
	return nil
}

// ListIncidents returns archived incidents, newest first per the archive's
// ordering. Results are cached for the configured TTL.
func (r *ArchiveClient) ListIncidents(ctx context.Context) ([]models.Incident, error) {
	if r == nil {
		return nil, fmt.Errorf("archive client not initialised")
	}
	if r.endpoint == "" {
		return nil, nil
	}

	cacheKey := r.listKey()
	if r.listTTL > 0 {
		if data, err := r.cache.Get(ctx, cacheKey); err == nil {
			var cached []models.Incident
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint+"/v1/incidents", nil)
	if err != nil {
		return nil, err
	}
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, utils.NewAppError("archive.list", strings.TrimSpace(string(data)), nil)
	}

	var response struct {
		Incidents []models.Incident `json:"incidents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if r.listTTL > 0 && len(response.Incidents) > 0 {
		if data, err := json.Marshal(response.Incidents); err == nil {
			_ = r.cache.Set(ctx, cacheKey, data, r.listTTL)
		}
	}

	return response.Incidents, nil
}

func (r *ArchiveClient) listKey() string {
	return "archive:incidents"
}

package repo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vigilstack/vigil-incident/internal/models"
)

func TestArchiveClientStoreIncident(t *testing.T) {
	var gotAuth string
	var gotIncident models.Incident
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/incidents" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotIncident); err != nil {
			t.Errorf("decode incident: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	mem := newMemCache()
	mem.data["archive:incidents"] = []byte("[]")
	client := NewArchiveClient(server.URL, "secret", time.Second, mem, time.Minute)

	incident := models.Incident{ID: "INC-1-abc", RootCause: models.RootCauseHypothesis{Cause: models.CauseTimeoutConfiguration}}
	if err := client.StoreIncident(context.Background(), incident); err != nil {
		t.Fatalf("store: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotIncident.ID != "INC-1-abc" {
		t.Errorf("stored incident = %+v", gotIncident)
	}
	// A successful store invalidates the cached listing.
	if _, ok := mem.data["archive:incidents"]; ok {
		t.Error("expected listing cache invalidation after store")
	}
}

func TestArchiveClientStoreDisabled(t *testing.T) {
	client := NewArchiveClient("", "", time.Second, nil, 0)
	if client.Enabled() {
		t.Error("empty endpoint must report disabled")
	}
	if err := client.StoreIncident(context.Background(), models.Incident{ID: "x"}); err != nil {
		t.Errorf("disabled store must be a no-op, got %v", err)
	}
}

func TestArchiveClientStorePatterns(t *testing.T) {
	var gotAuth string
	var gotBody struct {
		Patterns []models.IncidentPattern `json:"patterns"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/patterns" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode patterns: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewArchiveClient(server.URL, "secret", time.Second, nil, 0)
	mined := []models.IncidentPattern{{ID: "pattern-timeout_configuration", Cause: models.CauseTimeoutConfiguration, Occurrences: 3}}
	if err := client.StorePatterns(context.Background(), mined); err != nil {
		t.Fatalf("store patterns: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if len(gotBody.Patterns) != 1 || gotBody.Patterns[0].Occurrences != 3 {
		t.Errorf("stored patterns = %+v", gotBody.Patterns)
	}

	disabled := NewArchiveClient("", "", time.Second, nil, 0)
	if err := disabled.StorePatterns(context.Background(), mined); err != nil {
		t.Errorf("disabled store must be a no-op, got %v", err)
	}
}

func TestArchiveClientListIncidents(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"incidents": []models.Incident{{ID: "INC-1-abc"}, {ID: "INC-2-def"}},
		})
	}))
	defer server.Close()

	client := NewArchiveClient(server.URL, "", time.Second, newMemCache(), time.Minute)

	for i := 0; i < 2; i++ {
		incidents, err := client.ListIncidents(context.Background())
		if err != nil {
			t.Fatalf("list %d: %v", i, err)
		}
		if len(incidents) != 2 {
			t.Fatalf("list %d: %d incidents", i, len(incidents))
		}
	}
	if hits != 1 {
		t.Errorf("backend hit %d times, want 1 (second read from cache)", hits)
	}
}

func TestArchiveClientListError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewArchiveClient(server.URL, "", time.Second, nil, 0)
	if _, err := client.ListIncidents(context.Background()); err == nil {
		t.Fatal("expected error from 401 response")
	}
}

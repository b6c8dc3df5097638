package ingest

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mastersrl/carnivalhub/internal/config"
	"mastersrl/carnivalhub/internal/model"
)

func sidelineServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/events", r.URL.Path)
		assert.True(t, strings.EqualFold("masters", r.URL.Query().Get("search")))
		body, ok := pages[r.URL.Query().Get("page")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMySidelineProvider_Fetch(t *testing.T) {
	srv := sidelineServer(t, map[string]string{
		"1": `{"page":1,"totalPages":2,"events":[
			{"id":1042,"name":"Gold Coast Masters Carnival","startDate":"2026-08-15","state":"Queensland","venue":"Owen Park","contact":{"name":"Sam","email":"Sam@Example.com"}},
			{"id":1043,"name":"Junior Sevens","startDate":"2026-08-16","state":"QLD"}
		]}`,
		"2": `{"page":2,"totalPages":2,"events":[
			{"id":"2001","name":"Perth MASTERS Round","startDate":"2026-09-01T00:00:00Z","state":"Western Australia","registrationUrl":"https://example.com/r"}
		]}`,
	})

	p := NewMySidelineProvider(config.MySidelineConfig{
		BaseURL:           srv.URL + "/",
		SearchTerm:        "Masters",
		RequestsPerSecond: 100,
		Timeout:           time.Second,
	}, nil)

	events, err := p.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "ms-1042", events[0].ExternalID)
	assert.Equal(t, model.StateQLD, events[0].State)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.Equal(t, "Owen Park", events[0].LocationAddress)
	assert.Equal(t, "Sam@Example.com", events[0].OrganiserContactEmail)

	assert.Equal(t, "ms-2001", events[1].ExternalID)
	assert.Equal(t, model.StateWA, events[1].State)
	assert.Equal(t, "https://example.com/r", events[1].RegistrationLink)
}

func TestMySidelineProvider_UpstreamError(t *testing.T) {
	srv := sidelineServer(t, map[string]string{})
	p := NewMySidelineProvider(config.MySidelineConfig{BaseURL: srv.URL, SearchTerm: "masters", RequestsPerSecond: 100}, nil)

	_, err := p.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestMySidelineProvider_CancelledContext(t *testing.T) {
	p := NewMySidelineProvider(config.MySidelineConfig{BaseURL: "http://127.0.0.1:0", SearchTerm: "masters"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx)
	require.Error(t, err)
}

func TestFileProvider_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
events:
  - external_id: ms-1042
    title: Gold Coast Masters Carnival
    date: 2026-08-15
    state: Queensland
    location: Owen Park
  - external_id: ms-9
    title: Somewhere Else
    date: 2026-10-01
    state: Atlantis
`), 0o600))

	events, err := NewFileProvider(path).Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.StateQLD, events[0].State)
	assert.Equal(t, "Owen Park", events[0].LocationAddress)
	assert.Equal(t, time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC), events[0].Date)
	assert.False(t, events[1].State.Valid())
}

func TestFileProvider_MissingFile(t *testing.T) {
	_, err := NewFileProvider(filepath.Join(t.TempDir(), "nope.yaml")).Fetch(context.Background())
	require.Error(t, err)
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(config.IngestConfig{Source: "file", File: "x.yaml"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "file", src.Name())

	src, err = NewSource(config.IngestConfig{Source: "mysideline"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mysideline", src.Name())

	_, err = NewSource(config.IngestConfig{Source: "ftp"}, nil)
	require.Error(t, err)
}

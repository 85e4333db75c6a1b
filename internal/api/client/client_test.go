package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/jmhart/catalog-tracker/pkg/types"
)

func TestClient_ConnectionRefused(t *testing.T) {
	t.Parallel()

	c := New("http://127.0.0.1:1") // nothing listening
	_, err := c.ListRuns(context.Background(), &ListRunsParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API server not running")
}

func TestClient_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal"}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.ListRuns(context.Background(), &ListRunsParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error (HTTP 500)")
}

func TestClient_ListChanges(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/changes", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("client"))
		assert.Equal(t, []string{"price", "stock"}, r.URL.Query()["change_types"])
		assert.Equal(t, "title", r.URL.Query().Get("sort"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChangesResponse{
			Changes: []domain.ChangeItem{
				{ChangeRecord: domain.ChangeRecord{ID: 1, ChangeType: domain.ChangePrice}},
			},
			Total: 1,
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.ListChanges(context.Background(), &ListChangesParams{
		Client:      "acme",
		ChangeTypes: []string{"price", "stock"},
		Sort:        "title",
		Limit:       25,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Total)
	assert.Len(t, resp.Changes, 1)
}

func TestClient_Summary(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/summary", r.URL.Path)
		assert.Equal(t, "acme", r.URL.Query().Get("client"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.SummaryStats{TotalProducts: 42})
	}))
	defer srv.Close()

	c := New(srv.URL)
	s, err := c.Summary(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 42, s.TotalProducts)
}

func TestClient_GetRun(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/runs/r1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(domain.Run{ID: "r1", Status: domain.RunDone})
	}))
	defer srv.Close()

	c := New(srv.URL)
	run, err := c.GetRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunDone, run.Status)
}

func TestClient_StartJob(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/jobs", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req StartJobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "acme", req.Client)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"id": "run-1"})
	}))
	defer srv.Close()

	c := New(srv.URL)
	id, err := c.StartJob(context.Background(), &StartJobRequest{Client: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)
}

func TestClient_CancelJob(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/jobs/run-1/cancel", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := New(srv.URL)
	require.NoError(t, c.CancelJob(context.Background(), "run-1"))
}

func TestClient_Cleanup(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/cleanup", r.URL.Path)

		var req CleanupRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 90, req.MaxAgeDays)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"runs_deleted":3,"changes_deleted":77}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	res, err := c.Cleanup(context.Background(), &CleanupRequest{Client: "acme", MaxAgeDays: 90})
	require.NoError(t, err)
	assert.Equal(t, 3, res.RunsDeleted)
	assert.Equal(t, 77, res.ChangesDeleted)
}

func TestClient_ExportRun(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/runs/r1/export", r.URL.Path)
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		_, _ = w.Write([]byte("PK\x03\x04fake-xlsx"))
	}))
	defer srv.Close()

	c := New(srv.URL)
	data, err := c.ExportRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, len(data) > 4)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()

	custom := &http.Client{}
	c := New("http://example.com", WithHTTPClient(custom))
	assert.Same(t, custom, c.httpClient)
}

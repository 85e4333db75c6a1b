package handlers_test

import (
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmhart/catalog-tracker/internal/api/handlers"
	"github.com/jmhart/catalog-tracker/internal/store"
)

func newCleanupAPI(t *testing.T, fs *fakeStore) humatest.TestAPI {
	t.Helper()
	_, api := humatest.New(t)
	handlers.RegisterCleanupRoutes(api, handlers.NewCleanupHandler(fs))
	return api
}

func TestCleanup_ByAge(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{cleanupRes: &store.CleanupResult{RunsDeleted: 4, ChangesDeleted: 120}}
	api := newCleanupAPI(t, fs)

	resp := api.Post("/api/v1/cleanup", map[string]any{
		"client":       "acme",
		"max_age_days": 90,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"runs_deleted":4`)
	assert.Contains(t, resp.Body.String(), `"changes_deleted":120`)
	assert.Equal(t, "age", fs.lastCleanup)
}

func TestCleanup_ByIDs(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{cleanupRes: &store.CleanupResult{RunsDeleted: 2, ChangesDeleted: 9}}
	api := newCleanupAPI(t, fs)

	resp := api.Post("/api/v1/cleanup", map[string]any{
		"run_ids": []string{"r1", "r2"},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ids", fs.lastCleanup)
}

func TestCleanup_All(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{cleanupRes: &store.CleanupResult{}}
	api := newCleanupAPI(t, fs)

	resp := api.Post("/api/v1/cleanup", map[string]any{
		"client": "acme",
		"all":    true,
	})
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "all", fs.lastCleanup)
}

func TestCleanup_SelectorValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "no selector", body: map[string]any{"client": "acme"}},
		{
			name: "two selectors",
			body: map[string]any{"client": "acme", "max_age_days": 30, "all": true},
		},
		{name: "age without client", body: map[string]any{"max_age_days": 30}},
		{name: "all without client", body: map[string]any{"all": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			api := newCleanupAPI(t, &fakeStore{})
			resp := api.Post("/api/v1/cleanup", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
		})
	}
}

func TestCleanup_StoreError(t *testing.T) {
	t.Parallel()

	api := newCleanupAPI(t, &fakeStore{cleanupErr: assert.AnError})

	resp := api.Post("/api/v1/cleanup", map[string]any{
		"client": "acme",
		"all":    true,
	})
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

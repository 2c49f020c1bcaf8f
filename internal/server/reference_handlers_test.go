package server

import (
	"fmt"
	"net/http"
	"testing"

	"foodgram/internal/config"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateTag(t, ts.db, "breakfast")
	lunch := testutil.CreateTag(t, ts.db, "lunch")

	resp := ts.do(http.MethodGet, "/api/tags/", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tags []TagResponse
	decodeJSON(t, resp, &tags)
	assert.Len(t, tags, 2)

	resp = ts.do(http.MethodGet, fmt.Sprintf("/api/tags/%d/", lunch.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tag TagResponse
	decodeJSON(t, resp, &tag)
	assert.Equal(t, TagResponse{ID: lunch.ID, Name: "Tag lunch", Slug: "lunch"}, tag)

	resp = ts.do(http.MethodGet, "/api/tags/77/", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestIngredients(t *testing.T) {
	ts := newTestServer(t)
	testutil.CreateIngredient(t, ts.db, "Apple", "pcs")
	testutil.CreateIngredient(t, ts.db, "apricot", "g")
	beans := testutil.CreateIngredient(t, ts.db, "beans", "g")

	tests := []struct {
		query string
		count int
	}{
		{"", 3},
		{"?name=ap", 2},
		{"?name=AP", 2},
		{"?name=bea", 1},
		{"?name=zzz", 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			resp := ts.do(http.MethodGet, "/api/ingredients/"+tt.query, nil, "")
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var items []IngredientResponse
			decodeJSON(t, resp, &items)
			assert.Len(t, items, tt.count)
		})
	}

	resp := ts.do(http.MethodGet, fmt.Sprintf("/api/ingredients/%d/", beans.ID), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var item IngredientResponse
	decodeJSON(t, resp, &item)
	assert.Equal(t, "g", item.MeasurementUnit)

	resp = ts.do(http.MethodGet, "/api/ingredients/500/", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFeatureFlags(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.FeatureFlags = "short_links=on" })

	resp := ts.do(http.MethodGet, "/api/feature-flags", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Raw       map[string]string `json:"raw"`
		Evaluated map[string]bool   `json:"evaluated"`
	}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "on", body.Raw["short_links"])
	assert.True(t, body.Evaluated["short_links"])
}

func TestRoutingFallbacks(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(http.MethodGet, "/api/nothing-here/", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, errorMessage(t, resp))

	resp = ts.do(http.MethodGet, "/health/live", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/health/ready", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

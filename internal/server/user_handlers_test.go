package server

import (
	"net/http"
	"testing"

	"foodgram/internal/models"
	"foodgram/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ts := newTestServer(t)

	valid := map[string]string{
		"email":      "vasya@example.com",
		"username":   "vasya.pupkin",
		"first_name": "Vasya",
		"last_name":  "Pupkin",
		"password":   "Qwerty-123-zx",
	}

	resp := ts.do(http.MethodPost, "/api/users/", valid, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var body map[string]interface{}
	decodeJSON(t, resp, &body)
	assert.Equal(t, "vasya@example.com", body["email"])
	assert.Equal(t, "vasya.pupkin", body["username"])
	assert.NotContains(t, body, "password")
	assert.NotContains(t, body, "is_subscribed")

	t.Run("duplicate email", func(t *testing.T) {
		dup := map[string]string{}
		for k, v := range valid {
			dup[k] = v
		}
		dup["username"] = "someone-else"
		resp := ts.do(http.MethodPost, "/api/users/", dup, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing fields", func(t *testing.T) {
		resp := ts.do(http.MethodPost, "/api/users/", map[string]string{"email": "x@example.com"}, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestGetUserProfile(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	bob := testutil.CreateUser(t, ts.db, "bob")
	require.NoError(t, ts.db.Omit("User", "Author").Create(&models.Subscription{UserID: bob.ID, AuthorID: alice.ID}).Error)

	tests := []struct {
		name           string
		path           string
		token          string
		expectedStatus int
		subscribed     bool
	}{
		{"anonymous", "/api/users/1/", "", http.StatusOK, false},
		{"subscriber", "/api/users/1/", ts.token(bob), http.StatusOK, true},
		{"self", "/api/users/1/", ts.token(alice), http.StatusOK, false},
		{"invalid id", "/api/users/abc/", "", http.StatusNotFound, false},
		{"missing", "/api/users/99/", "", http.StatusNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(http.MethodGet, tt.path, nil, tt.token)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedStatus != http.StatusOK {
				return
			}
			var body UserResponse
			decodeJSON(t, resp, &body)
			assert.Equal(t, alice.ID, body.ID)
			assert.Equal(t, tt.subscribed, body.IsSubscribed)
			assert.Nil(t, body.Avatar)
		})
	}
}

func TestGetMe(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")

	resp := ts.do(http.MethodGet, "/api/users/me/", nil, ts.token(alice))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body UserResponse
	decodeJSON(t, resp, &body)
	assert.Equal(t, "alice", body.Username)

	resp = ts.do(http.MethodGet, "/api/users/me/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListUsers_Paginated(t *testing.T) {
	ts := newTestServer(t)
	for _, name := range []string{"u1", "u2", "u3"} {
		testutil.CreateUser(t, ts.db, name)
	}

	resp := ts.do(http.MethodGet, "/api/users/?limit=2", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Count    int64          `json:"count"`
		Next     *string        `json:"next"`
		Previous *string        `json:"previous"`
		Results  []UserResponse `json:"results"`
	}
	decodeJSON(t, resp, &page)
	assert.Equal(t, int64(3), page.Count)
	assert.Len(t, page.Results, 2)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)

	resp = ts.do(http.MethodGet, "/api/users/?limit=2&page=3", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetPassword(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	token := ts.token(alice)

	resp := ts.do(http.MethodPost, "/api/users/set_password/", map[string]string{
		"current_password": "wrong", "new_password": "Fresh-pass-42",
	}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/users/set_password/", map[string]string{
		"current_password": "pass-word-1", "new_password": "Fresh-pass-42",
	}, token)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/auth/token/login/", map[string]string{
		"email": "alice@example.com", "password": "Fresh-pass-42",
	}, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAvatar(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	token := ts.token(alice)

	resp := ts.do(http.MethodPut, "/api/users/me/avatar/", map[string]string{}, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPut, "/api/users/me/avatar/", map[string]string{
		"avatar": testutil.PNGDataURI(t, 8, 8),
	}, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.True(t, ts.store.Has(body["avatar"]))

	resp = ts.do(http.MethodGet, "/api/users/me/", nil, token)
	var me UserResponse
	decodeJSON(t, resp, &me)
	require.NotNil(t, me.Avatar)
	assert.Equal(t, body["avatar"], *me.Avatar)

	resp = ts.do(http.MethodDelete, "/api/users/me/avatar/", nil, token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.False(t, ts.store.Has(body["avatar"]))
}

func TestSubscriptions(t *testing.T) {
	ts := newTestServer(t)
	alice := testutil.CreateUser(t, ts.db, "alice")
	bob := testutil.CreateUser(t, ts.db, "bob")
	for _, name := range []string{"soup", "salad", "stew"} {
		testutil.CreateRecipe(t, ts.db, alice, name, nil, nil)
	}
	token := ts.token(bob)

	resp := ts.do(http.MethodPost, "/api/users/1/subscribe/?recipes_limit=2", nil, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var card AuthorCardResponse
	decodeJSON(t, resp, &card)
	assert.Equal(t, alice.ID, card.ID)
	assert.True(t, card.IsSubscribed)
	assert.Len(t, card.Recipes, 2)
	assert.Equal(t, int64(3), card.RecipesCount)

	resp = ts.do(http.MethodPost, "/api/users/1/subscribe/", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/users/2/subscribe/", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodPost, "/api/users/99/subscribe/", nil, token)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/users/subscriptions/?recipes_limit=1", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page struct {
		Count   int64                `json:"count"`
		Results []AuthorCardResponse `json:"results"`
	}
	decodeJSON(t, resp, &page)
	require.Equal(t, int64(1), page.Count)
	assert.Len(t, page.Results[0].Recipes, 1)
	assert.Equal(t, "stew", page.Results[0].Recipes[0].Name)

	limits := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?recipes_limit=0", 0},
		{"?recipes_limit=-2", 3},
		{"?recipes_limit=abc", 3},
		{"?recipes_limit=10", 3},
	}
	for _, tt := range limits {
		t.Run("recipes_limit "+tt.query, func(t *testing.T) {
			resp := ts.do(http.MethodGet, "/api/users/subscriptions/"+tt.query, nil, token)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var page struct {
				Results []AuthorCardResponse `json:"results"`
			}
			decodeJSON(t, resp, &page)
			require.Len(t, page.Results, 1)
			assert.Len(t, page.Results[0].Recipes, tt.want)
			assert.Equal(t, int64(3), page.Results[0].RecipesCount)
		})
	}

	resp = ts.do(http.MethodDelete, "/api/users/1/subscribe/", nil, token)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(http.MethodDelete, "/api/users/1/subscribe/", nil, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(http.MethodGet, "/api/users/subscriptions/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

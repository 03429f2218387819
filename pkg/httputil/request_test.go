package httputil

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"user_id":"alice"}`))

	var dest struct {
		UserID string `json:"user_id"`
	}
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "alice", dest.UserID)
}

func TestParseJSONInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{nope`))

	var dest map[string]string
	assert.Error(t, ParseJSON(req, &dest))
}

func TestParseJSONOrError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{bad`))

	var dest map[string]string
	ok := ParseJSONOrError(rec, req, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParsePathString(t *testing.T) {
	router := mux.NewRouter()
	var got string
	router.HandleFunc("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		val, err := ParsePathString(r, "id")
		require.NoError(t, err)
		got = val
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users/alice", nil))
	assert.Equal(t, "alice", got)
}

func TestParsePathStringMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := ParsePathString(req, "id")
	assert.Error(t, err)
}

func TestRequireNonEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	assert.True(t, RequireNonEmpty(rec, "value", "user_id"))

	rec = httptest.NewRecorder()
	assert.False(t, RequireNonEmpty(rec, "", "user_id"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_id is required")
}

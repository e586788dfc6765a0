package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Shape(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "contention", "too much write contention, retry")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "contention", body.Reason)
	assert.Equal(t, "too much write contention, retry", body.Message)
}

func TestUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := UserID(req)
	require.Error(t, err)

	req.Header.Set("X-User-ID", "not-a-uuid")
	_, err = UserID(req)
	require.Error(t, err)

	id := uuid.New()
	req.Header.Set("X-User-ID", id.String())
	parsed, err := UserID(req)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

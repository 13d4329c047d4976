package api

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	data := map[string]string{"message": "hello"}
	writeJSON(w, 200, data)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "hello", result["message"])
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	writeError(w, 400, "Message cannot be empty.")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var result ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &result)
	require.NoError(t, err)
	assert.Equal(t, "Message cannot be empty.", result.Detail)
}

func TestDecodeJSON(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi"}`))

		var body ChatRequest
		require.NoError(t, decodeJSON(req, &body))
		assert.Equal(t, "hi", body.Message)
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":"hi","bogus":1}`))

		var body ChatRequest
		assert.Error(t, decodeJSON(req, &body))
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/chat", strings.NewReader(`{"message":`))

		var body ChatRequest
		assert.Error(t, decodeJSON(req, &body))
	})
}

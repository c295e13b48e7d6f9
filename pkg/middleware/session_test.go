package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_InjectsSessionID(t *testing.T) {
	var got string
	handler := Session()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	req.Header.Set(SessionHeader, "sess_01.abc-DEF")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sess_01.abc-DEF", got)
}

func TestSession_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing", ""},
		{"whitespace", "sess 1"},
		{"colon", "restu:1"},
		{"too long", strings.Repeat("a", maxSessionIDLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := Session()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
			if tt.header != "" {
				req.Header.Set(SessionHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body map[string]map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "MISSING_SESSION", body["error"]["code"])
		})
	}
}

func TestSessionIDFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, SessionIDFromContext(req.Context()))
}

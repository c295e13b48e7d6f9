package http

import (
	"mime"
	"net/http"

	"github.com/devmojahid/restu-food/pkg/httputil"
)

// requireJSON rejects write requests whose declared body type is not JSON.
// A missing Content-Type is accepted.
func requireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if ct := r.Header.Get("Content-Type"); ct != "" {
				if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
					httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
						Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
					})
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

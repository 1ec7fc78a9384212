package handler

import (
	"crypto/subtle"
	"net/http"
)

const functionKeyHeader = "x-functions-key"

// authorized reports whether r carries one of keys.
func authorized(r *http.Request, keys []string) bool {
	provided := r.Header.Get(functionKeyHeader)
	if provided == "" {
		provided = r.URL.Query().Get("code")
	}
	if provided == "" {
		return false
	}

	ok := false
	for _, key := range keys {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) == 1 {
			ok = true
		}
	}
	return ok
}

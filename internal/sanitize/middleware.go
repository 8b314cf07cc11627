package sanitize

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxSanitizedBody bounds how much of a request body the pipeline will buffer.
const maxSanitizedBody = 10 << 20

// Middleware runs the sanitization pipeline over the request before routing:
// JSON body fields, query parameters and path segments. Malformed input is
// passed through untouched rather than rejected; downstream decoding deals
// with it.
func Middleware(s *Sanitizer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sanitizeQuery(s, r)
			sanitizePath(s, r)
			sanitizeBody(s, r)
			next.ServeHTTP(w, r)
		})
	}
}

func sanitizeQuery(s *Sanitizer, r *http.Request) {
	query := r.URL.Query()
	if len(query) == 0 {
		return
	}

	for key, values := range query {
		for i, v := range values {
			values[i] = s.Field(key, v)
		}
		query[key] = values
	}
	r.URL.RawQuery = query.Encode()
}

func sanitizePath(s *Sanitizer, r *http.Request) {
	segments := strings.Split(r.URL.Path, "/")
	changed := false
	for i, seg := range segments {
		if clean := s.Clean(seg); clean != seg {
			segments[i] = clean
			changed = true
		}
	}
	if changed {
		r.URL.Path = strings.Join(segments, "/")
		r.URL.RawPath = ""
	}
}

func sanitizeBody(s *Sanitizer, r *http.Request) {
	if r.Body == nil || r.Body == http.NoBody {
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxSanitizedBody))
	r.Body.Close()
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(nil))
		return
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Not valid JSON; hand the original bytes downstream.
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	sanitized, err := json.Marshal(s.Value("", decoded))
	if err != nil {
		r.Body = io.NopCloser(bytes.NewReader(raw))
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(sanitized))
	r.ContentLength = int64(len(sanitized))
}

package restapi

import (
	"fmt"
	"net/http"
)

// CacheControlMiddleware stamps successful responses with a max-age;
// maxAgeSeconds of zero marks them uncacheable, which is what the live
// projections want. Error responses always go out uncacheable so a cached
// 404 cannot mask an entity that appears in the next schedule.
func CacheControlMiddleware(maxAgeSeconds int, next http.Handler) http.Handler {
	headerValue := "no-cache, no-store, must-revalidate"
	if maxAgeSeconds > 0 {
		headerValue = fmt.Sprintf("public, max-age=%d", maxAgeSeconds)
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&cacheControlWriter{ResponseWriter: w, headerValue: headerValue}, r)
	})
}

// cacheControlWriter sets Cache-Control when the status is first known; a
// handler that writes without an explicit WriteHeader gets the 2xx value.
type cacheControlWriter struct {
	http.ResponseWriter
	headerValue string
	stamped     bool
}

func (w *cacheControlWriter) WriteHeader(code int) {
	if !w.stamped {
		w.stamped = true
		if code >= 200 && code < 300 {
			w.ResponseWriter.Header().Set("Cache-Control", w.headerValue)
		} else {
			w.ResponseWriter.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *cacheControlWriter) Write(b []byte) (int, error) {
	if !w.stamped {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *cacheControlWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

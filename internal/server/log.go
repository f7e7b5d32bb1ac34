package server

import (
	"mime"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/controller"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.WithFields(log.Fields{
			"method":   r.Method,
			"url":      r.URL.String(),
			"status":   rec.status,
			"cache":    rec.Header().Get(controller.CacheHeader),
			"duration": time.Since(start),
		}).Debug("request")
	})
}

func contentDisposition(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

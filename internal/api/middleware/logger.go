package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger logs every request's method, path and latency.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logrus.WithFields(logrus.Fields{
					"method": r.Method,
					"path": r.RequestURI,
					"latency": time.Since(start).String(),
			}).Info("request handled")
	})
}

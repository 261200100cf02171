package middleware

import (
	"fmt"
	"net/http"

	"github.com/reviewhub/catalog-reviews/internal/delivery/http/response"
	"github.com/reviewhub/catalog-reviews/internal/pkg/logger"
)

// Recovery converts handler panics into 500 responses instead of killing
// the connection.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.WithFields(map[string]interface{}{
						"method": r.Method,
						"path":   r.URL.Path,
					}).Error("Panic in handler", fmt.Errorf("%v", rec))

					response.Error(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

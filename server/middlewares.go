package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Daskott/medibox/colors"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type ResponseWriterWithStatus struct {
	http.ResponseWriter
	Status int
}

func (r *ResponseWriterWithStatus) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func loggingMiddleware(logg *zap.SugaredLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			responseWriter := &ResponseWriterWithStatus{
				ResponseWriter: w,
				Status:         http.StatusOK,
			}

			defer func() {
				logg.Info(
					r.Method, " ",
					r.RequestURI, " ",
					colors.Status(responseWriter.Status), " ",
					colors.Yellow(fmt.Sprintf("[%v]", time.Since(start))))
			}()

			next.ServeHTTP(responseWriter, r)
		})
	}
}

// corsMiddleware allows browser clients from any origin & answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", http.MethodPost)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

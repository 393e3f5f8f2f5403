package middleware

import (
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/yasinhessnawi1/authkeeper/internal/constants"
	"github.com/yasinhessnawi1/authkeeper/internal/utils"
)

// Recovery is a middleware that recovers from panics and returns a 500 Internal Server Error
func Recovery() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// Let the server abort the connection as it would without us
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				stack := debug.Stack()
				reqLog := utils.RequestLogger(chimiddleware.GetReqID(r.Context()), "", r.Method, r.URL.Path)
				reqLog.Error().
					Str("remote_addr", r.RemoteAddr).
					Msg("Panic recovered in request handler")
				utils.LogPanic(rec, stack)

				utils.Error(
					w,
					http.StatusInternalServerError,
					constants.CodeInternalError,
					constants.MsgInternalServerError,
					nil,
				)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// LogAndContinueOnError logs an error but allows execution to continue.
// Background jobs use it for failures that must not stop the loop.
func LogAndContinueOnError(err error, message string) {
	if err != nil {
		utils.LogError(err, map[string]interface{}{"task": message})
	}
}

package middleware

import (
	"fmt"
	"net/http"

	"github.com/angelmondragon/carbuild-backend/api/responses"
	pkgerrors "github.com/angelmondragon/carbuild-backend/pkg/errors"
	"github.com/angelmondragon/carbuild-backend/pkg/logger"
)

// Recoverer turns a handler panic into an internal error rendered by
// writeErr, or by responses.WriteError when writeErr is nil.
func Recoverer(logg *logger.Logger, writeErr responses.ErrorWriter) func(http.Handler) http.Handler {
	if writeErr == nil {
		writeErr = responses.WriteError
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
						logg.Error(ctx, "recovered from panic", err)
					}
					writeErr(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

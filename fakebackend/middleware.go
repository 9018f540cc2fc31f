package fakebackend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// logRequests logs every served request at debug level. The writer is passed
// through untouched so the push endpoint can still hijack it.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("fakebackend request")
	})
}

// recoverPanics answers a panicking handler with a 500 envelope instead of
// dropping the connection.
func recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("fakebackend handler panicked")
			writeEnvelope(w, http.StatusInternalServerError, CodeInternal, fmt.Sprint(rec), nil)
		}()
		next.ServeHTTP(w, r)
	})
}

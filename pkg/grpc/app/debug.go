package app

import (
	"context"
	"expvar"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

const debugRestartDelay = 5 * time.Second

// newDebugMux returns the handlers for the debug listener, or nil when both
// pprof and expvar are disabled.
func newDebugMux(config BaseConfig) *http.ServeMux {
	if !config.EnablePprof && !config.EnableExpvar {
		return nil
	}

	mux := http.NewServeMux()
	if config.EnableExpvar {
		mux.Handle("/debug/vars", expvar.Handler())
	}
	if config.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// serveDebug keeps the debug listener up until ctx is done.
func serveDebug(ctx context.Context, log *logrus.Entry, address string, handler http.Handler) {
	for {
		err := http.ListenAndServe(address, handler)
		log.WithError(err).Warnf("debug http server failed, retrying in %v", debugRestartDelay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(debugRestartDelay):
		}
	}
}

package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"codeberg.org/mutker/dcrmctl/internal/errors"
	"codeberg.org/mutker/dcrmctl/internal/logger"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

const (
	apiPrefix = "/api/v1"

	readTimeout     = 15 * time.Second
	writeTimeout    = 60 * time.Second
	shutdownTimeout = 10 * time.Second
)

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	// routes stay on the root router so a method mismatch answers 405
	r.HandleFunc(apiPrefix+"/series", h.loadSeries).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/series", h.getSeries).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/features", h.getFeatures).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/metadata", h.getMetadata).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/metadata", h.putMetadata).Methods(http.MethodPut)
	r.HandleFunc(apiPrefix+"/analysis", h.getAnalysis).Methods(http.MethodGet)
	r.HandleFunc(apiPrefix+"/predict", h.predict).Methods(http.MethodPost)
	r.HandleFunc(apiPrefix+"/history", h.getHistory).Methods(http.MethodGet)

	return r
}

// NewServer wraps the router with access logging, panic recovery and CORS
// for a browser dashboard served from another origin.
func NewServer(addr string, h *Handler, allowedOrigins []string) *http.Server {
	log := logger.Component("http")

	var handler http.Handler = NewRouter(h)
	handler = handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", sourceHeader}),
	)(handler)
	handler = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true), handlers.RecoveryLogger(recoveryLogger{log}))(handler)
	handler = handlers.LoggingHandler(accessLog{log}, handler)

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully
func Run(ctx context.Context, srv *http.Server) error {
	errFactory := errors.New()
	errCh := make(chan error, 1)

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("HTTP API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return errFactory.Wrap(errors.ErrServe, err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errFactory.Wrap(errors.ErrShutdownFailed, err)
	}
	logger.Info().Msg("HTTP API stopped")

	return nil
}

// accessLog forwards combined log lines from gorilla/handlers to zerolog
type accessLog struct {
	log logger.Logger
}

func (a accessLog) Write(p []byte) (int, error) {
	a.log.Info().Str("access", strings.TrimSpace(string(p))).Msg("request")
	return len(p), nil
}

type recoveryLogger struct {
	log logger.Logger
}

func (r recoveryLogger) Println(v ...interface{}) {
	if len(v) == 0 {
		return
	}
	if err, ok := v[0].(error); ok {
		r.log.Error().Err(err).Msg("Recovered from panic")
		return
	}
	r.log.Error().Interface("panic", v).Msg("Recovered from panic")
}

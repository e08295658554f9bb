// Package api is the operator HTTP surface: place autocomplete for map
// navigation and a health check.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"AuctionHarvester/internal/domain"
	"AuctionHarvester/internal/logging"
)

// Suggester serves autocomplete results.
type Suggester interface {
	Suggest(ctx context.Context, text string) ([]domain.Suggestion, error)
}

// Handler holds the route dependencies.
type Handler struct {
	suggester Suggester
	logger    *slog.Logger
}

// NewRouter builds the instrumented router.
func NewRouter(suggester Suggester, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	h := &Handler{suggester: suggester, logger: logger}

	r := mux.NewRouter()
	r.Use(recoverer(logger), requestLogger(logger))
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/api/geocode-autocomplete", h.autocomplete).Methods(http.MethodGet)

	return otelhttp.NewHandler(r, "auctionharvester")
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) autocomplete(w http.ResponseWriter, r *http.Request) {
	if h.suggester == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "autocomplete not configured"})
		return
	}

	suggestions, err := h.suggester.Suggest(r.Context(), r.URL.Query().Get("text"))
	if err != nil {
		h.logger.Error("autocomplete failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, suggestions)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Serve runs the handler on addr until ctx is cancelled, then shuts down.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

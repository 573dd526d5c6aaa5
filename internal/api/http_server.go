package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"duetmenu/internal/config"
	"duetmenu/internal/domain"
	"duetmenu/internal/events"
	"duetmenu/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HistoryExporter writes the order history to a spreadsheet file and
// returns its path.
type HistoryExporter interface {
	Export(ctx context.Context) (string, error)
}

// HTTPServer is the presentation boundary: it forwards user intents into
// the core services and renders their snapshots as JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	catalog  domain.CatalogService
	cart     domain.CartService
	history  domain.HistoryService
	notices  *events.NoticeLog
	images   domain.ImageStore
	exporter HistoryExporter
	logger   *zerolog.Logger
	server   *http.Server
	auth     *HTTPAuth
}

func NewHTTPServer(
	cfg config.APIConfig,
	catalog domain.CatalogService,
	cart domain.CartService,
	history domain.HistoryService,
	notices *events.NoticeLog,
	images domain.ImageStore,
	imageDir string,
	exporter HistoryExporter,
	logger *zerolog.Logger,
) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		catalog:  catalog,
		cart:     cart,
		history:  history,
		notices:  notices,
		images:   images,
		exporter: exporter,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/menu", srv.handleMenu)
	mux.HandleFunc("/api/v1/menu/", srv.handleMenuItem)
	mux.HandleFunc("/api/v1/cart", srv.handleCart)
	mux.HandleFunc("/api/v1/cart/items", srv.handleCartItems)
	mux.HandleFunc("/api/v1/cart/items/", srv.handleCartItem)
	mux.HandleFunc("/api/v1/orders", srv.handleOrders)
	mux.HandleFunc("/api/v1/orders/export", srv.handleOrdersExport)
	mux.HandleFunc("/api/v1/orders/", srv.handleOrderRecord)
	mux.HandleFunc("/api/v1/notices", srv.handleNotices)
	mux.HandleFunc("/api/v1/images", srv.handleImageUpload)
	if imageDir != "" {
		mux.Handle("/images/", http.StripPrefix("/images/", http.FileServer(http.Dir(imageDir))))
	}

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the composed handler for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/msalah0e/conceptmap/internal/config"
	"github.com/msalah0e/conceptmap/internal/graph"
	"github.com/msalah0e/conceptmap/internal/session"
	"github.com/msalah0e/conceptmap/internal/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed console.html
var consolePage []byte

// ErrSuperseded is returned when a newer load replaced the map while it was
// being laid out.
var ErrSuperseded = errors.New("load superseded by a newer load")

// Server serves one session over HTTP.
type Server struct {
	sess       *session.Session
	src        source.Source
	cfg        config.ServerConfig
	background string
	logger     *zap.Logger
	onLoad     func(key string)
}

// New creates a server.
func New(sess *session.Session, src source.Source, cfg config.ServerConfig, background string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{sess: sess, src: src, cfg: cfg, background: background, logger: logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/", s.console)
	router.Get("/health", s.health)

	router.Route("/api", func(r chi.Router) {
		r.Get("/maps", s.listMaps)
		r.Post("/maps/{key}/load", s.loadMap)
		r.Get("/scene", s.scene)
		r.Post("/pointer", s.pointer)
		r.Post("/camera", s.camera)
		r.Post("/viewport", s.viewport)
		r.Get("/search", s.search)
		r.Post("/select", s.selectNode)
		r.Delete("/select", s.deselect)
		r.Get("/selection", s.selection)
		r.Get("/export", s.export)
	})

	return router
}

// OnLoad registers fn to run after every successful Reload. It must be set
// before Run.
func (s *Server) OnLoad(fn func(key string)) {
	s.onLoad = fn
}

// Reload fetches key and lays it out. It is used by the load endpoint and by
// the directory watcher.
func (s *Server) Reload(ctx context.Context, key string) (graph.LoadReport, error) {
	snap, err := s.src.Fetch(ctx, key)
	if err != nil {
		return graph.LoadReport{}, err
	}
	report := s.sess.Load(key, snap)
	if _, err := s.sess.Layout(ctx); err != nil {
		if errors.Is(err, graph.ErrStaleLayout) {
			return report, ErrSuperseded
		}
		return report, fmt.Errorf("layout %s: %w", key, err)
	}
	if s.onLoad != nil {
		s.onLoad(key)
	}
	return report, nil
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("console listening", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.sess.Close()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) console(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(consolePage)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

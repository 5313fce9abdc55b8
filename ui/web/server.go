// Package web serves the dashboard: HTML pages on a chi router and a gin JSON
// API mounted under /api.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"sheetlens/adapters/columnar"
	"sheetlens/adapters/excel"
	"sheetlens/domain/frame"
	"sheetlens/internal/batch"
	"sheetlens/internal/workbench"
	"sheetlens/models"
	"sheetlens/ports"
	"sheetlens/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html templates/fragments/*.html sidebar.md
var embeddedFiles embed.FS

const (
	// PreviewRows caps the rows rendered in the preview table
	PreviewRows = 1000
	// UploadTTL is how long uploaded files are kept on disk
	UploadTTL = 24 * time.Hour
	// MaxUploadBytes bounds a multipart upload
	MaxUploadBytes = 64 << 20
)

// Config holds dashboard settings
type Config struct {
	Port         string
	GinMode      string
	UploadDir    string
	QueriesFile  string
	ExportDir    string
	DefaultModel string
}

// Server is the dashboard
type Server struct {
	router    *chi.Mux
	api       *gin.Engine
	templates *template.Template
	sidebar   template.HTML

	config  Config
	store   *workbench.Store
	uploads *workbench.Uploads
	analyst batch.Analyst
	parquet *columnar.Writer
	history ports.HistoryRepository
	load    func(path string) (*frame.Table, error)
	logger  *zap.Logger
	now     func() time.Time
}

// NewServer wires the routers. history may be nil.
func NewServer(config Config, analyst batch.Analyst, parquet *columnar.Writer, history ports.HistoryRepository, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.DefaultModel == "" {
		config.DefaultModel = models.ModelLarge
	}
	if config.UploadDir == "" {
		config.UploadDir = filepath.Join(os.TempDir(), "sheetlens-uploads")
	}
	if config.GinMode != "" {
		gin.SetMode(config.GinMode)
	}

	uploads, err := workbench.NewUploads(config.UploadDir)
	if err != nil {
		return nil, err
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	sidebar, err := renderSidebar()
	if err != nil {
		return nil, fmt.Errorf("failed to render sidebar: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		api:       gin.New(),
		templates: templates,
		sidebar:   sidebar,
		config:    config,
		store:     workbench.NewStore(),
		uploads:   uploads,
		analyst:   analyst,
		parquet:   parquet,
		history:   history,
		load:      excel.Load,
		logger:    logger,
		now:       time.Now,
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupAPI()
	return s, nil
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))

	s.api.Use(gin.Recovery())
	s.api.Use(middleware.RequestLogger(s.logger))
	s.api.MaxMultipartMemory = MaxUploadBytes
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/upload", s.handleUpload)
	s.router.Get("/datasets/{id}", s.handleDataset)
	s.router.Post("/datasets/{id}/analyze", s.handleAnalyze)
	s.router.Post("/datasets/{id}/parquet", s.handleSaveParquet)
	s.router.Post("/datasets/{id}/batch", s.handleBatch)
	s.router.Post("/datasets/{id}/export", s.handleExport)
	s.router.Get("/datasets/{id}/export.json", s.handleDownloadExport)

	// gin sees the full path, so its routes keep the /api prefix
	s.router.Mount("/api", s.api)
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
// Expired uploads are removed hourly while it runs.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("dashboard listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("dashboard server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n, err := s.uploads.CleanupExpired(UploadTTL); err != nil {
					s.logger.Warn("upload cleanup failed", zap.Error(err))
				} else if n > 0 {
					s.logger.Debug("expired uploads removed", zap.Int("files", n))
				}
			}
		}
	})
	return g.Wait()
}

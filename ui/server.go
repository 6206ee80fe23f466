package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"pbidesc/internal/api"
	"pbidesc/internal/jobs"
	"pbidesc/internal/usage"

	"github.com/gin-gonic/gin"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// Options holds the settings the page displays and enforces
type Options struct {
	MaxUploadMB int
	Model       string
	Endpoint    string
	// Usage, when set, is reported by GET /api/usage.
	Usage *usage.Service
}

// Server is the upload / progress / download front end
type Server struct {
	router    *gin.Engine
	templates *template.Template
	store     *jobs.Store
	runner    *jobs.Runner
	hub       *api.SSEHub
	opts      Options
}

// NewServer creates a new web server instance
func NewServer(store *jobs.Store, runner *jobs.Runner, hub *api.SSEHub, opts Options) (*Server, error) {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 50
	}

	templates, err := template.ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:    gin.New(),
		templates: templates,
		store:     store,
		runner:    runner,
		hub:       hub,
		opts:      opts,
	}

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware and static assets
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.MaxMultipartMemory = int64(s.opts.MaxUploadMB) << 20

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := s.router.Group("/api")
	apiGroup.POST("/upload", s.handleFileUpload)
	apiGroup.GET("/events", s.hub.HandleSSE)
	apiGroup.GET("/jobs/:id", s.handleJobStatus)
	apiGroup.POST("/jobs/:id/generate", s.handleGenerate)
	apiGroup.GET("/jobs/:id/download", s.handleDownload)
	apiGroup.GET("/usage", s.handleUsage)
}

// Handler exposes the router for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("Starting description generator UI on http://%s", addr)
	return s.router.Run(addr)
}

func (s *Server) handleIndex(c *gin.Context) {
	s.renderTemplate(c, "index.html", gin.H{
		"Title":       "Power BI Metadata Description Generator",
		"Model":       s.opts.Model,
		"Endpoint":    s.opts.Endpoint,
		"MaxUploadMB": s.opts.MaxUploadMB,
	})
}

func (s *Server) handleUsage(c *gin.Context) {
	if s.opts.Usage == nil {
		c.JSON(http.StatusOK, usage.NewService().Totals())
		return
	}
	c.JSON(http.StatusOK, s.opts.Usage.Totals())
}

// Package api provides the REST API server for circuitpatch
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/james-see/circuitpatch/pkg/config"
	"github.com/james-see/circuitpatch/pkg/converter"
	"github.com/james-see/circuitpatch/pkg/library"
	"github.com/james-see/circuitpatch/pkg/patch"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Circuit Patch Converter API
// @version 1.0
// @description API for converting Novation Circuit patches between Circuit and Circuit Tracks
// @host localhost:8080
// @BasePath /api/v1

// maxUploadSize bounds the multipart form kept in memory
const maxUploadSize = 32 << 20

// Server handles API requests
type Server struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewRouter builds the gin engine with every route registered
func NewRouter(cfg *config.Config, logger *slog.Logger) *gin.Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.MaxMultipartMemory = maxUploadSize

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/vocabulary", listVocabulary)
		v1.POST("/inspect", s.handleInspect)
		v1.POST("/convert", s.handleConvert)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the configured port
func StartServer(cfg *config.Config, logger *slog.Logger) error {
	r := NewRouter(cfg, logger)
	return r.Run(fmt.Sprintf(":%d", cfg.Server.Port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
		)
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "circuitpatch",
	})
}

// listVocabulary godoc
// @Summary List products, categories and genres
// @Description Returns the fixed vocabularies stored in patch headers
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/vocabulary [get]
func listVocabulary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products":   []string{patch.Circuit.DisplayName(), patch.CircuitTracks.DisplayName()},
		"categories": patch.Categories(),
		"genres":     patch.Genres(),
	})
}

// handleInspect godoc
// @Summary Inspect patch files
// @Description Upload one or more .syx files and receive their metadata
// @Tags patches
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Patch file(s) to inspect"
// @Success 200 {object} map[string][]library.FileReport
// @Failure 400 {object} map[string]string
// @Router /api/v1/inspect [post]
func (s *Server) handleInspect(c *gin.Context) {
	lib, ok := s.loadUploads(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": lib.Reports()})
}

// handleConvert godoc
// @Summary Convert patch files
// @Description Upload .syx files and receive a zip of every patch retargeted to the other product
// @Tags patches
// @Accept multipart/form-data
// @Produce application/zip
// @Param file formData file true "Patch file(s) to convert"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/convert [post]
func (s *Server) handleConvert(c *gin.Context) {
	lib, ok := s.loadUploads(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	sink := converter.NewZipSink(&buf)
	conv := converter.New(sink, s.logger,
		converter.WithThrottle(s.cfg.Throttle.BatchSize, s.cfg.Throttle.Pause()))

	sum, err := conv.Run(c.Request.Context(), lib)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := sink.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if sum.Emitted == 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "no convertible patches",
			"files": lib.Reports(),
		})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=converted.zip")
	c.Data(http.StatusOK, "application/zip", buf.Bytes())
}

// loadUploads classifies every uploaded "file" part. It writes the error
// response itself and returns false when there is nothing to work on.
func (s *Server) loadUploads(c *gin.Context) (*library.Library, bool) {
	form, err := c.MultipartForm()
	if err != nil || len(form.File["file"]) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, false
	}

	lib := library.New(library.WithLogger(s.logger))
	for _, header := range form.File["file"] {
		if _, err := lib.Add(&uploadSource{header: header}); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
	}

	if err := lib.Process(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return lib, true
}

// uploadSource reads one multipart file part.
type uploadSource struct {
	header *multipart.FileHeader
}

func (u *uploadSource) Name() string { return u.header.Filename }
func (u *uploadSource) Size() int64  { return u.header.Size }

func (u *uploadSource) ReadAll(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := u.header.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	return io.ReadAll(file)
}

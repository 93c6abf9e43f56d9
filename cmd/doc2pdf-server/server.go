package main

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	doc2pdf "github.com/alnah/go-doc2pdf"
	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// converter is the slice of the conversion service the transport consumes.
// Abstracted to allow testing handlers without real engines.
type converter interface {
	Convert(ctx context.Context, inputPath, outputPath string) (string, error)
	EngineStatus() map[string]bool
}

// server wires the HTTP surface to the conversion core: an upload endpoint
// that returns immediately with a job id, a polling endpoint, and a
// download endpoint. Conversions run on background goroutines admitted
// through a bounded pool.
type server struct {
	cfg  *doc2pdf.Config
	conv converter
	jobs *jobStore
	pool *doc2pdf.Pool
	log  zerolog.Logger
}

func newServer(cfg *doc2pdf.Config, conv converter, pool *doc2pdf.Pool, log zerolog.Logger) *server {
	return &server{
		cfg:  cfg,
		conv: conv,
		jobs: newJobStore(),
		pool: pool,
		log:  log,
	}
}

// router builds the gin engine with all routes registered.
func (s *server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.POST("/upload", s.handleUpload)
	r.GET("/status/:id", s.handleStatus)
	r.GET("/download/:id", s.handleDownload)
	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// requestLogger emits one structured log line per request.
func (s *server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *server) handleUpload(c *gin.Context) {
	// Bound disk usage before taking on new work.
	ttl := time.Duration(s.cfg.Upload.CleanupTTLMinutes) * time.Minute
	sweepStale(s.cfg.Dirs.Uploads, ttl, s.log)
	sweepStale(s.cfg.Dirs.Converted, ttl, s.log)

	// Cap the request body so oversized uploads fail during parsing
	// instead of filling the disk.
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.Upload.MaxBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			uploadsRejected.WithLabelValues("too_large").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	name := sanitizeFilename(fileHeader.Filename)
	ext := fileutil.Ext(name)
	if !s.cfg.Upload.Allowed(ext) {
		uploadsRejected.WithLabelValues("extension").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type", "extension": ext})
		return
	}

	// Key every artifact by the job id end to end so concurrent uploads of
	// the same filename can never collide on scratch or output paths.
	id := uuid.NewString()
	uploadPath := filepath.Join(s.cfg.Dirs.Uploads, id+"_"+name)
	outputPath := filepath.Join(s.cfg.Dirs.Converted, id+"_"+fileutil.Stem(name)+".pdf")

	if err := c.SaveUploadedFile(fileHeader, uploadPath); err != nil {
		s.log.Error().Err(err).Str("path", uploadPath).Msg("saving upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save upload"})
		return
	}

	s.jobs.create(id, fileutil.Stem(name)+".pdf", outputPath)
	go s.runConversion(id, uploadPath, outputPath)

	c.JSON(http.StatusAccepted, gin.H{
		"id":         id,
		"status":     statusProcessing,
		"status_url": "/status/" + id,
	})
}

// runConversion executes one conversion on a background goroutine, queued
// behind the admission pool, and records the terminal outcome exactly once.
func (s *server) runConversion(id, uploadPath, outputPath string) {
	ctx := context.Background()
	if err := s.pool.Acquire(ctx); err != nil {
		s.jobs.fail(id, "conversion could not be scheduled")
		return
	}
	defer s.pool.Release()

	conversionsInFlight.Inc()
	defer conversionsInFlight.Dec()

	start := time.Now()
	result, err := s.conv.Convert(ctx, uploadPath, outputPath)
	conversionDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		outcome := outcomeFailed
		if errors.Is(err, doc2pdf.ErrTimeout) {
			outcome = outcomeTimeout
		}
		conversionsTotal.WithLabelValues(outcome).Inc()
		s.log.Error().Err(err).Str("job", id).Msg("conversion failed")
		s.jobs.fail(id, userMessage(err))
		return
	}

	conversionsTotal.WithLabelValues(outcomeSuccess).Inc()
	s.log.Info().Str("job", id).Str("output", result).Msg("conversion completed")
	s.jobs.complete(id, result)
}

func (s *server) handleStatus(c *gin.Context) {
	j, ok := s.jobs.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
		return
	}

	resp := gin.H{
		"status":   j.Status,
		"message":  j.Message,
		"filename": j.Filename,
	}
	if j.Status == statusCompleted {
		resp["download_url"] = "/download/" + j.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *server) handleDownload(c *gin.Context) {
	j, ok := s.jobs.get(c.Param("id"))
	if !ok || j.Status != statusCompleted {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job id"})
		return
	}
	if !fileutil.NonEmptyFile(j.outputPath) {
		c.JSON(http.StatusNotFound, gin.H{"error": "file no longer available"})
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	c.Header("Content-Security-Policy", "default-src 'self'")
	c.Header("X-Frame-Options", "SAMEORIGIN")
	c.Header("Content-Type", "application/pdf")
	c.FileAttachment(j.outputPath, j.Filename)
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"engines": s.conv.EngineStatus(),
	})
}

// unsafeFilenameChars matches everything not safe in a stored filename.
var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename reduces a client-supplied filename to a safe basename.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		return "upload"
	}
	return name
}

// userMessage extracts the user-facing message and remedy from a
// conversion failure.
func userMessage(err error) string {
	var ce *doc2pdf.ConversionError
	if errors.As(err, &ce) {
		if ce.Remedy != "" {
			return ce.Message + " (hint: " + ce.Remedy + ")"
		}
		return ce.Message
	}
	return "conversion failed"
}

package doc2pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// Service orchestrates the document-to-PDF pipeline: validation, engine
// selection, intermediate HTML materialization, and output verification.
// It owns no persistent state; every call is independent except for the
// scratch artifacts it creates and deletes itself.
type Service struct {
	cfg *Config
	log zerolog.Logger

	validator    *validator
	runner       commandRunner
	office       *sofficeEngine
	htmlEngine   *wkhtmltopdfEngine
	markdown     *markdownRenderer
	materializer *materializer

	// officeGate serializes office-suite invocations: the suite is a
	// de-facto single-instance resource per host. The name-based orphan
	// sweep in the runner is a last resort, not the concurrency control.
	officeGate *semaphore.Weighted
}

// New creates a Service from cfg. The configured working directories must
// already exist; the service only manages per-call scratch files beneath
// them.
func New(cfg *Config, opts ...Option) (*Service, error) {
	if err := cfg.ValidateDirs(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:        cfg,
		log:        zerolog.Nop(),
		validator:  newValidator(),
		officeGate: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(s)
	}

	// Wire defaults for anything not injected (e.g., by tests).
	if s.runner == nil {
		s.runner = &execRunner{log: s.log}
	}
	if s.office == nil {
		s.office = newSofficeEngine(cfg.Engines, cfg.Dirs.Temp, s.runner, s.log)
	}
	if s.htmlEngine == nil {
		s.htmlEngine = newWkhtmltopdfEngine(cfg.Engines, s.runner, s.log)
	}
	if s.markdown == nil {
		s.markdown = newMarkdownRenderer(cfg.Dirs.Temp)
	}
	if s.materializer == nil {
		s.materializer = newMaterializer(cfg.Dirs.Temp)
	}

	return s, nil
}

// EngineStatus reports which engines are currently available, keyed by
// engine name. Used by health endpoints.
func (s *Service) EngineStatus() map[string]bool {
	return map[string]bool{
		s.office.name():     s.office.available(),
		s.htmlEngine.name(): s.htmlEngine.available(),
	}
}

// Convert validates inputPath, renders it to PDF, and returns the output
// path. When outputPath is empty the output lands in the converted
// directory named after the input stem. All failures are *ConversionError.
func (s *Service) Convert(ctx context.Context, inputPath, outputPath string) (string, error) {
	inputPath, err := filepath.Abs(inputPath)
	if err != nil {
		return "", convErrorCause(ErrValidation, err, "", "invalid input path: %v", err)
	}
	if outputPath == "" {
		outputPath = filepath.Join(s.cfg.Dirs.Converted, fileutil.Stem(inputPath)+".pdf")
	}
	if outputPath, err = filepath.Abs(outputPath); err != nil {
		return "", convErrorCause(ErrValidation, err, "", "invalid output path: %v", err)
	}

	if err := s.validator.validate(inputPath); err != nil {
		return "", asConversionError(err)
	}

	s.log.Info().Str("input", inputPath).Str("output", outputPath).Msg("converting to PDF")

	switch fileutil.Ext(inputPath) {
	case "txt":
		err = s.convertText(ctx, inputPath, outputPath)
	case "md", "markdown":
		err = s.convertMarkdown(ctx, inputPath, outputPath)
	case "html", "htm":
		err = s.convertHTML(ctx, inputPath, outputPath)
	default:
		err = s.convertOffice(ctx, inputPath, outputPath)
	}
	if err != nil {
		return "", s.relabel(err)
	}

	if err := verifyOutput(outputPath); err != nil {
		return "", asConversionError(err)
	}
	s.log.Info().Str("output", outputPath).Msg("conversion completed")
	return outputPath, nil
}

// convertText materializes intermediate HTML and prefers the HTML engine
// when its binary is present, falling back to the office suite. The
// temporary HTML is deleted on every branch.
func (s *Service) convertText(ctx context.Context, inputPath, outputPath string) error {
	if s.htmlEngine.available() && s.materializer.isLarge(inputPath) {
		htmlPath, err := s.materializer.materializeLarge(inputPath)
		if err != nil {
			return err
		}
		defer func() { _ = os.Remove(htmlPath) }()
		return s.htmlEngine.convertLarge(ctx, htmlPath, outputPath)
	}

	htmlPath, err := s.materializer.materialize(inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(htmlPath) }()
	return s.convertHTML(ctx, htmlPath, outputPath)
}

// convertMarkdown renders Markdown to a scratch HTML document, then follows
// the HTML path. The scratch file is deleted on every branch.
func (s *Service) convertMarkdown(ctx context.Context, inputPath, outputPath string) error {
	htmlPath, err := s.markdown.renderFile(inputPath)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(htmlPath) }()
	return s.convertHTML(ctx, htmlPath, outputPath)
}

// convertHTML prefers the HTML engine when present, else the office suite.
func (s *Service) convertHTML(ctx context.Context, inputPath, outputPath string) error {
	if s.htmlEngine.available() {
		return s.htmlEngine.convert(ctx, inputPath, outputPath)
	}
	return s.convertOffice(ctx, inputPath, outputPath)
}

// convertOffice runs the office suite under the single-flight gate.
func (s *Service) convertOffice(ctx context.Context, inputPath, outputPath string) error {
	if err := s.officeGate.Acquire(ctx, 1); err != nil {
		return convErrorCause(ErrEngineFailed, err, "", "conversion canceled while queued: %v", err)
	}
	defer s.officeGate.Release(1)
	return s.office.convert(ctx, inputPath, outputPath)
}

// relabel simplifies timeout-class failures into one user-facing message
// while preserving the original as the underlying cause. Everything else
// propagates with its original detail, normalized to ConversionError.
func (s *Service) relabel(err error) error {
	if errors.Is(err, ErrTimeout) {
		return &ConversionError{
			Message: "conversion timed out - the file may be too large or complex",
			Remedy:  "try a smaller or simpler document, or split it into parts",
			Err:     err,
		}
	}
	return asConversionError(err)
}

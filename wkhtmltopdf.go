package doc2pdf

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// wkhtmltopdfEngine renders HTML (or text turned HTML) straight to PDF via
// the wkhtmltopdf binary. Faster than the office suite for simple
// documents, with a dedicated large-file path that adds pagination
// footers and a longer timeout tier.
type wkhtmltopdfEngine struct {
	binary       string
	timeout      time.Duration
	largeTimeout time.Duration
	runner       commandRunner
	log          zerolog.Logger
}

func newWkhtmltopdfEngine(cfg EnginesConfig, runner commandRunner, log zerolog.Logger) *wkhtmltopdfEngine {
	return &wkhtmltopdfEngine{
		binary:       cfg.WkhtmltopdfPath,
		timeout:      cfg.WkhtmltopdfTimeout(),
		largeTimeout: cfg.WkhtmltopdfLargeTimeout(),
		runner:       runner,
		log:          log,
	}
}

func (e *wkhtmltopdfEngine) name() string { return "wkhtmltopdf" }

func (e *wkhtmltopdfEngine) available() bool {
	return binaryPresent(e.binary)
}

func (e *wkhtmltopdfEngine) convert(ctx context.Context, inputPath, outputPath string) error {
	argv := []string{e.binary, "--quiet", inputPath, outputPath}
	return e.render(ctx, argv, outputPath, e.timeout)
}

// convertLarge renders chunked HTML produced by the large-file
// materializer. The current/total page markers in the footer come from the
// engine itself, so the materializer does not need to know the page count
// up front.
func (e *wkhtmltopdfEngine) convertLarge(ctx context.Context, inputPath, outputPath string) error {
	argv := []string{
		e.binary,
		"--quiet",
		"--margin-top", "15mm",
		"--margin-bottom", "20mm",
		"--footer-center", "[page]/[topage]",
		"--footer-font-size", "8",
		inputPath,
		outputPath,
	}
	return e.render(ctx, argv, outputPath, e.largeTimeout)
}

func (e *wkhtmltopdfEngine) render(ctx context.Context, argv []string, outputPath string, timeout time.Duration) error {
	if !e.available() {
		return convError(ErrEngineUnavailable,
			"install wkhtmltopdf or correct the configured binary path",
			"html engine binary not found: %s", e.binary)
	}

	e.log.Info().Str("output", outputPath).Dur("timeout", timeout).Msg("running html engine")
	inv := engineInvocation{argv: argv, timeout: timeout}
	if err := e.runner.run(ctx, inv); err != nil {
		return err
	}
	return verifyOutput(outputPath)
}

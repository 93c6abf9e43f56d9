package doc2pdf

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// engine converts a validated input file into a PDF at outputPath.
type engine interface {
	name() string
	available() bool
	convert(ctx context.Context, inputPath, outputPath string) error
}

// Compile-time interface checks.
var (
	_ engine = (*sofficeEngine)(nil)
	_ engine = (*wkhtmltopdfEngine)(nil)
)

// sofficeEngine drives a headless LibreOffice to export any supported
// office format to PDF. The suite is not safely reentrant with a shared
// profile, so every invocation mints an isolated profile directory; the
// orchestrator additionally serializes invocations with a single-flight
// gate.
type sofficeEngine struct {
	binary  string
	timeout time.Duration
	tempDir string
	runner  commandRunner
	log     zerolog.Logger

	// Poll and retry knobs, shortened in tests.
	pollInterval time.Duration
	pollRetries  int
	removeDelay  time.Duration
}

func newSofficeEngine(cfg EnginesConfig, tempDir string, runner commandRunner, log zerolog.Logger) *sofficeEngine {
	return &sofficeEngine{
		binary: cfg.SofficePath,
		// The runner gets double the configured tier; the suite spends part
		// of it bootstrapping the fresh profile before rendering starts.
		timeout:      2 * cfg.SofficeTimeout(),
		tempDir:      tempDir,
		runner:       runner,
		log:          log,
		pollInterval: outputPollInterval,
		pollRetries:  outputPollRetries,
		removeDelay:  time.Second,
	}
}

func (e *sofficeEngine) name() string { return "libreoffice" }

// available reports whether the configured binary exists. A configured
// explicit path is checked on disk; a bare name is resolved from PATH.
func (e *sofficeEngine) available() bool {
	return binaryPresent(e.binary)
}

// sweepTarget is the process name matched by the orphan sweep.
func (e *sofficeEngine) sweepTarget() string {
	return filepath.Base(e.binary)
}

func (e *sofficeEngine) convert(ctx context.Context, inputPath, outputPath string) error {
	if !e.available() {
		return convError(ErrEngineUnavailable,
			"install LibreOffice or correct the configured binary path",
			"office engine binary not found: %s", e.binary)
	}

	outDir := filepath.Dir(outputPath)

	// A fresh profile per call keyed by a unique token; the suite refuses
	// to share one profile across concurrent instances.
	profileDir := filepath.Join(e.tempDir, "lo-profile-"+uuid.NewString())
	if err := os.MkdirAll(profileDir, 0o750); err != nil {
		return convErrorCause(ErrScratch, err,
			"verify the temp directory is writable",
			"failed to create profile directory: %v", err)
	}
	defer e.removeProfile(profileDir)

	inv := engineInvocation{
		argv: []string{
			e.binary,
			"--headless",
			"-env:UserInstallation=" + profileURL(profileDir),
			"--convert-to", "pdf:writer_pdf_Export",
			"--outdir", outDir,
			inputPath,
			"--norestore",
			"--nodefault",
			"--nologo",
		},
		env:     []string{"HOME=" + profileDir},
		timeout: e.timeout,
		sweep:   e.sweepTarget(),
	}

	e.log.Info().Str("input", inputPath).Str("outdir", outDir).Msg("running office engine")
	if err := e.runner.run(ctx, inv); err != nil {
		return err
	}

	// The suite names its output after the input stem, and its exit code
	// does not reliably signal completion on all versions; poll for the
	// file to appear non-empty.
	produced := filepath.Join(outDir, fileutil.Stem(inputPath)+".pdf")
	if err := e.waitForOutput(produced); err != nil {
		return err
	}

	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return convErrorCause(ErrOutputMissing, err, "",
				"failed to move output into place: %v", err)
		}
	}
	return nil
}

// waitForOutput polls bounded retries for the expected PDF to exist
// non-empty.
func (e *sofficeEngine) waitForOutput(path string) error {
	for i := 0; i < e.pollRetries; i++ {
		if fileutil.NonEmptyFile(path) {
			return nil
		}
		time.Sleep(e.pollInterval)
	}
	return convError(ErrOutputMissing, "",
		"office engine reported success but produced no output: %s", path)
}

// removeProfile deletes the isolated profile directory with bounded
// retries; transient file locks can make the first attempt fail on some
// platforms. Failures never escalate.
func (e *sofficeEngine) removeProfile(dir string) {
	for i := 0; i < profileRemoveRetries; i++ {
		if err := os.RemoveAll(dir); err == nil {
			return
		}
		time.Sleep(e.removeDelay)
	}
	e.log.Warn().Str("dir", dir).Msg("could not remove engine profile directory")
}

// profileURL formats a directory as the file URL LibreOffice expects for
// -env:UserInstallation.
func profileURL(dir string) string {
	return "file://" + filepath.ToSlash(dir)
}

// binaryPresent reports whether a configured engine binary can be found,
// either as an explicit path on disk or via PATH lookup.
func binaryPresent(binary string) bool {
	if fileutil.IsFilePath(binary) {
		return fileutil.FileExists(binary)
	}
	_, err := exec.LookPath(binary)
	return err == nil
}

// verifyOutput confirms the conversion post-condition shared by both
// engines: the output exists and is non-empty.
func verifyOutput(path string) error {
	if !fileutil.NonEmptyFile(path) {
		return convError(ErrOutputMissing, "",
			"conversion succeeded but output file is missing or empty: %s", path)
	}
	return nil
}

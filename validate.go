package doc2pdf

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// validator confirms a candidate input file is readable, stable, and that
// its sniffed media type is consistent with its extension.
type validator struct {
	supported       map[string][]string
	stabilityWindow time.Duration

	// detect sniffs the media type of the file at path. Overridable in
	// tests to simulate sniffing failures.
	detect func(path string) (string, error)
}

func newValidator() *validator {
	return &validator{
		supported:       supportedTypes,
		stabilityWindow: defaultStabilityWindow,
		detect:          detectMediaType,
	}
}

// detectMediaType sniffs the file content and returns the media type
// without parameters, e.g. "text/plain".
func detectMediaType(path string) (string, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	return baseMediaType(mtype.String()), nil
}

// baseMediaType strips parameters such as "; charset=utf-8".
func baseMediaType(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// validate checks the file at path against the supported-type table.
// All failures are *ConversionError; no raw I/O error escapes.
func (v *validator) validate(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return convError(ErrValidation, "", "file does not exist: %s", path)
	}
	if !info.Mode().IsRegular() {
		return convError(ErrValidation, "", "path is not a regular file: %s", path)
	}

	f, err := os.Open(path) // #nosec G304 -- path already confined by the caller
	if err != nil {
		return convError(ErrValidation,
			"check file permissions or try a different file",
			"file is not readable: %s", path)
	}
	_ = f.Close()

	// Guard against converting a file still being written: the size must
	// hold steady across the stability window.
	initialSize := info.Size()
	time.Sleep(v.stabilityWindow)
	info, err = os.Stat(path)
	if err != nil || info.Size() != initialSize {
		return convError(ErrValidation,
			"the file might still be uploading or being modified",
			"file size changed during validation")
	}

	ext := fileutil.Ext(path)
	if ext == "" {
		return convError(ErrValidation,
			"add the correct file extension or try a different file",
			"file has no extension")
	}

	accepted, ok := v.supported[ext]
	if !ok {
		return convError(ErrValidation,
			fmt.Sprintf("supported formats: %s", strings.Join(SupportedExtensions(), ", ")),
			"unsupported file extension: .%s", ext)
	}

	detected, err := v.detect(path)
	if err != nil {
		return convErrorCause(ErrValidation, err,
			"the file might be corrupted or in an unsupported format",
			"could not determine file type: %v", err)
	}

	// docx and xlsx are zip containers; a generic zip sniff is acceptable
	// for them unconditionally.
	if detected == "application/zip" && (ext == "docx" || ext == "xlsx") {
		return nil
	}

	for _, want := range accepted {
		if detected == baseMediaType(want) {
			return nil
		}
	}
	return convError(ErrValidation,
		"the file might be corrupted or mislabeled",
		"file content does not match extension .%s: detected %s", ext, detected)
}

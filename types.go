package doc2pdf

import (
	"time"

	"github.com/rs/zerolog"
)

// supportedTypes maps a lowercase extension (no dot) to the media types its
// content may legitimately sniff as. An extension absent from this table is
// always rejected; every present extension has at least one entry.
//
// docx and xlsx are zip containers and commonly sniff as generic zip; that
// case is carved out in the validator rather than listed here because the
// carve-out is unconditional.
var supportedTypes = map[string][]string{
	"txt":      {"text/plain", "text/plain; charset=utf-8"},
	"md":       {"text/plain", "text/markdown", "text/x-markdown"},
	"markdown": {"text/plain", "text/markdown", "text/x-markdown"},
	"doc":      {"application/msword", "application/octet-stream", "application/vnd.ms-word"},
	"docx": {
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/octet-stream",
	},
	"xls": {"application/vnd.ms-excel", "application/octet-stream"},
	"xlsx": {
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/octet-stream",
	},
	"html": {"text/html", "text/html; charset=utf-8"},
	"htm":  {"text/html", "text/html; charset=utf-8"},
	"odt":  {"application/vnd.oasis.opendocument.text"},
	"rtf":  {"text/rtf", "application/rtf"},
}

// SupportedExtensions returns the extensions the converter accepts, without
// leading dots, in no particular order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(supportedTypes))
	for ext := range supportedTypes {
		exts = append(exts, ext)
	}
	return exts
}

// Tunables with defaults matching the reference deployment.
const (
	// defaultStabilityWindow is how long the validator waits between size
	// checks to detect a file still being written.
	defaultStabilityWindow = 500 * time.Millisecond

	// largeTextThreshold is the input size above which text files take the
	// chunked pagination path instead of per-line blocks.
	largeTextThreshold = 10 << 20 // 10 MB

	// textChunkSize is the approximate size of each preformatted block on
	// the chunked path.
	textChunkSize = 500 << 10 // 500 KB

	// outputPollInterval and outputPollRetries bound the wait for
	// LibreOffice's output file to appear non-empty; its exit code alone is
	// not a reliable completion signal on all versions.
	outputPollInterval = time.Second
	outputPollRetries  = 5

	// profileRemoveRetries bounds retries when deleting the per-call
	// LibreOffice profile directory (transient locks on some platforms).
	profileRemoveRetries = 3
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the structured logger. The default is a no-op logger, so
// library consumers opt in to logging explicitly.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) {
		s.log = log
	}
}

// WithStabilityWindow overrides the validator's file-stability interval.
// Panics if d <= 0 (programmer error, similar to time.NewTicker).
func WithStabilityWindow(d time.Duration) Option {
	if d <= 0 {
		panic("doc2pdf: WithStabilityWindow duration must be positive")
	}
	return func(s *Service) {
		s.validator.stabilityWindow = d
	}
}

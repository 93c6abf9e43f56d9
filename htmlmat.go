package doc2pdf

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// materializer synthesizes temporary, paginated HTML documents from raw
// text input, used as an intermediate format before PDF rendering. The
// caller owns deletion of the returned path.
type materializer struct {
	tempDir string

	// largeThreshold and chunkSize govern the chunked pagination path.
	// Overridable in tests.
	largeThreshold int64
	chunkSize      int
}

func newMaterializer(tempDir string) *materializer {
	return &materializer{
		tempDir:        tempDir,
		largeThreshold: largeTextThreshold,
		chunkSize:      textChunkSize,
	}
}

// isLarge reports whether the text file at path should take the chunked
// pagination path.
func (m *materializer) isLarge(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() >= m.largeThreshold
}

const lineDocHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { margin: 1in; font-family: Arial, sans-serif; line-height: 1.6; }
div.line { white-space: pre-wrap; word-wrap: break-word; page-break-inside: avoid; min-height: 1em; }
</style>
</head>
<body>
`

// lineBlockSize caps how much of one source line goes into a single block
// element; longer lines are split across several blocks at rune boundaries.
const lineBlockSize = 64 << 10

// materialize wraps each source line in its own block-level element. A
// single oversized preformatted block makes some renderers choke; per-line
// blocks also let the renderer break pages cleanly. Lines are streamed
// without a length cap, so minified single-line input converts like any
// other text file.
func (m *materializer) materialize(inputPath string) (string, error) {
	htmlPath := filepath.Join(m.tempDir, fileutil.Stem(inputPath)+".html")

	in, err := os.Open(inputPath) // #nosec G304 -- path already validated
	if err != nil {
		return "", convErrorCause(ErrValidation, err, "",
			"failed to read text file: %v", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(htmlPath) // #nosec G304 -- path confined to the temp dir
	if err != nil {
		return "", m.writeFailed(htmlPath, err)
	}

	w := bufio.NewWriter(out)
	_, _ = fmt.Fprintf(w, lineDocHeader, html.EscapeString(fileutil.Stem(inputPath)))

	r := bufio.NewReader(in)
	for {
		line, readErr := r.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			_ = out.Close()
			_ = os.Remove(htmlPath)
			return "", convErrorCause(ErrValidation, readErr, "",
				"failed to read text file: %v", readErr)
		}
		line = strings.TrimRight(line, "\r\n")
		if line != "" || readErr == nil {
			writeLineBlocks(w, replaceInvalidUTF8(line))
		}
		if readErr != nil {
			break
		}
	}

	_, _ = w.WriteString("</body>\n</html>\n")
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return "", m.writeFailed(htmlPath, err)
	}
	if err := out.Close(); err != nil {
		return "", m.writeFailed(htmlPath, err)
	}

	return htmlPath, nil
}

// writeLineBlocks emits one line as one or more block elements, splitting
// past lineBlockSize at rune boundaries so no block embeds a torn rune.
func writeLineBlocks(w *bufio.Writer, line string) {
	if line == "" {
		_, _ = w.WriteString("<div class=\"line\">&nbsp;</div>\n")
		return
	}
	for len(line) > lineBlockSize {
		cut := lineBlockSize
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		_, _ = fmt.Fprintf(w, "<div class=\"line\">%s</div>\n", html.EscapeString(line[:cut]))
		line = line[cut:]
	}
	_, _ = fmt.Fprintf(w, "<div class=\"line\">%s</div>\n", html.EscapeString(line))
}

const chunkDocHeader = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { margin: 0.5in; font-family: Arial, sans-serif; }
pre.chunk { white-space: pre-wrap; word-wrap: break-word; font-size: 10pt; }
div.page-break { page-break-after: always; }
</style>
</head>
<body>
`

// materializeLarge streams the source into consecutive preformatted blocks
// separated by explicit page-break markers. Per-line wrapping of
// multi-megabyte files produces a DOM the HTML-to-PDF engine renders
// unacceptably slowly or not at all; the page footer with current/total
// markers is requested from the engine itself (see wkhtmltopdf adapter).
func (m *materializer) materializeLarge(inputPath string) (string, error) {
	htmlPath := filepath.Join(m.tempDir, fileutil.Stem(inputPath)+".html")

	in, err := os.Open(inputPath) // #nosec G304 -- path already validated
	if err != nil {
		return "", convErrorCause(ErrValidation, err, "",
			"failed to read text file: %v", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(htmlPath) // #nosec G304 -- path confined to the temp dir
	if err != nil {
		return "", m.writeFailed(htmlPath, err)
	}

	w := bufio.NewWriter(out)
	_, _ = fmt.Fprintf(w, chunkDocHeader, html.EscapeString(fileutil.Stem(inputPath)))

	// Accumulate whole lines until a chunk reaches chunkSize, so a chunk
	// boundary never splits a line or a multi-byte rune. Page breaks go
	// between chunks only; one after the last chunk would render a trailing
	// blank page.
	r := bufio.NewReader(in)
	var chunk strings.Builder
	first := true
	for {
		line, readErr := r.ReadString('\n')
		chunk.WriteString(line)

		if chunk.Len() >= m.chunkSize || (readErr != nil && chunk.Len() > 0) {
			if !first {
				_, _ = w.WriteString("<div class=\"page-break\"></div>\n")
			}
			first = false
			_, _ = w.WriteString("<pre class=\"chunk\">")
			_, _ = w.WriteString(html.EscapeString(replaceInvalidUTF8(chunk.String())))
			_, _ = w.WriteString("</pre>\n")
			chunk.Reset()
		}

		if readErr != nil {
			if readErr != io.EOF {
				_ = out.Close()
				_ = os.Remove(htmlPath)
				return "", convErrorCause(ErrValidation, readErr, "",
					"failed to read text file: %v", readErr)
			}
			break
		}
	}

	_, _ = w.WriteString("</body>\n</html>\n")
	if err := w.Flush(); err != nil {
		_ = out.Close()
		return "", m.writeFailed(htmlPath, err)
	}
	if err := out.Close(); err != nil {
		return "", m.writeFailed(htmlPath, err)
	}

	return htmlPath, nil
}

// writeFailed deletes the partial file (idempotent if absent) and wraps the
// cause. Materialized output is never left half-written.
func (m *materializer) writeFailed(htmlPath string, cause error) error {
	_ = os.Remove(htmlPath)
	return convErrorCause(ErrScratch, cause,
		"verify the temp directory is writable and has free space",
		"failed to create HTML file: %v", cause)
}

// replaceInvalidUTF8 substitutes undecodable bytes instead of failing, so
// mixed-encoding text files still convert.
func replaceInvalidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

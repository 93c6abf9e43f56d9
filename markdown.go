package doc2pdf

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"

	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
)

// markdownDocTemplate wraps goldmark's fragment output in a complete HTML5
// document with print-friendly styling.
const markdownDocTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { margin: 1in; font-family: Arial, sans-serif; line-height: 1.6; }
pre { white-space: pre-wrap; word-wrap: break-word; page-break-inside: avoid; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 4px 8px; }
</style>
</head>
<body>
%s
</body>
</html>
`

// markdownRenderer turns a Markdown file into a standalone HTML document in
// the scratch directory, after which conversion follows the HTML path. The
// caller owns deletion of the returned file.
type markdownRenderer struct {
	md      goldmark.Markdown
	tempDir string
}

func newMarkdownRenderer(tempDir string) *markdownRenderer {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM, // Tables, strikethrough, autolinks, task lists
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(
					chromahtml.WithLineNumbers(false),
				),
			),
		),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithXHTML(),
		),
	)
	return &markdownRenderer{md: md, tempDir: tempDir}
}

// renderFile converts the Markdown file at inputPath and writes the HTML
// document next to the other scratch artifacts.
func (r *markdownRenderer) renderFile(inputPath string) (string, error) {
	source, err := os.ReadFile(inputPath) // #nosec G304 -- path already validated
	if err != nil {
		return "", convErrorCause(ErrValidation, err, "",
			"failed to read markdown file: %v", err)
	}

	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf); err != nil {
		return "", convErrorCause(ErrValidation, err,
			"the markdown file might contain constructs the renderer cannot parse",
			"markdown rendering failed: %v", err)
	}

	htmlPath := filepath.Join(r.tempDir, fileutil.Stem(inputPath)+".html")
	doc := fmt.Sprintf(markdownDocTemplate,
		html.EscapeString(fileutil.Stem(inputPath)), buf.String())
	if err := os.WriteFile(htmlPath, []byte(doc), 0o600); err != nil {
		_ = os.Remove(htmlPath)
		return "", convErrorCause(ErrScratch, err,
			"verify the temp directory is writable and has free space",
			"failed to create HTML file: %v", err)
	}
	return htmlPath, nil
}

// Package doc2pdf converts office documents (text, Word, Excel, HTML,
// OpenDocument, rich text, Markdown) to PDF by orchestrating two external
// rendering engines: a headless LibreOffice for office formats and
// wkhtmltopdf for HTML and text.
//
// # Quick Start
//
// Create a service from a configuration whose directories already exist,
// then convert:
//
//	cfg := doc2pdf.DefaultConfig()
//	svc, err := doc2pdf.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	out, err := svc.Convert(ctx, "report.docx", "")
//	if err != nil {
//	    var ce *doc2pdf.ConversionError
//	    if errors.As(err, &ce) {
//	        log.Fatalf("%s (hint: %s)", ce.Message, ce.Remedy)
//	    }
//	    log.Fatal(err)
//	}
//
// # Conversion Pipeline
//
// Each call runs these stages:
//
//  1. Validation: existence, readability, write-stability, extension, and
//     content sniffing consistent with the extension.
//  2. Engine selection: text and HTML prefer wkhtmltopdf when present,
//     falling back to LibreOffice; office formats always use LibreOffice.
//  3. Intermediate HTML materialization for text and Markdown input,
//     including a chunked pagination path for very large text files.
//  4. External process execution with a hard timeout, process-group
//     termination, and orphan sweeps.
//  5. Output verification: the returned path always exists and is
//     non-empty.
//
// All failures surface as *ConversionError carrying a message and a
// human-actionable remedy; classify programmatically with errors.Is against
// the package sentinels (ErrValidation, ErrEngineUnavailable, ErrTimeout,
// and friends).
//
// # Concurrency
//
// A Service is safe for concurrent use. LibreOffice invocations are
// serialized through an internal single-flight gate because the suite is
// not reentrant; callers running many conversions should additionally
// bound admission with a Pool.
package doc2pdf

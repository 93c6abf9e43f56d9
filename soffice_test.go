package doc2pdf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

// mockRunner records every invocation and delegates behavior to onRun. The
// default behavior is success without side effects.
type mockRunner struct {
	invocations []engineInvocation
	onRun       func(inv engineInvocation) error
}

func (m *mockRunner) run(_ context.Context, inv engineInvocation) error {
	m.invocations = append(m.invocations, inv)
	if m.onRun != nil {
		return m.onRun(inv)
	}
	return nil
}

// fakeBinary creates an executable-looking file and returns its path. The
// path contains separators so availability checks hit the filesystem rather
// than PATH.
func fakeBinary(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o700); err != nil { // #nosec G306
		t.Fatal(err)
	}
	return path
}

// producePDF fabricates the office suite's output: a PDF named after the
// input stem in the --outdir directory.
func producePDF(t *testing.T) func(inv engineInvocation) error {
	t.Helper()
	return func(inv engineInvocation) error {
		var outDir, input string
		for i, arg := range inv.argv {
			if arg == "--outdir" && i+1 < len(inv.argv) {
				outDir = inv.argv[i+1]
				input = inv.argv[i+2]
			}
		}
		if outDir == "" {
			t.Fatal("invocation missing --outdir")
		}
		produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))+".pdf")
		return os.WriteFile(produced, []byte("%PDF-1.4 fake"), 0o600)
	}
}

func newTestSofficeEngine(t *testing.T, runner commandRunner) *sofficeEngine {
	t.Helper()
	e := newSofficeEngine(EnginesConfig{
		SofficePath:           fakeBinary(t, "soffice"),
		SofficeTimeoutSeconds: 5,
	}, t.TempDir(), runner, testLogger())
	e.pollInterval = time.Millisecond
	e.pollRetries = 2
	e.removeDelay = time.Millisecond
	return e
}

func TestSofficeConvert(t *testing.T) {
	mock := &mockRunner{onRun: producePDF(t)}
	e := newTestSofficeEngine(t, mock)

	input := writeFixture(t, "report.docx", []byte("content"))
	output := filepath.Join(t.TempDir(), "job123_report.pdf")

	if err := e.convert(context.Background(), input, output); err != nil {
		t.Fatalf("convert: %v", err)
	}

	if len(mock.invocations) != 1 {
		t.Fatalf("invocations = %d, want 1", len(mock.invocations))
	}
	inv := mock.invocations[0]

	joined := strings.Join(inv.argv, " ")
	for _, want := range []string{
		"--headless",
		"-env:UserInstallation=file://",
		"--convert-to pdf:writer_pdf_Export",
		"--outdir " + filepath.Dir(output),
		"--norestore",
		"--nodefault",
		"--nologo",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("argv missing %q: %s", want, joined)
		}
	}

	if len(inv.env) != 1 || !strings.HasPrefix(inv.env[0], "HOME=") {
		t.Errorf("env = %v, want isolated HOME", inv.env)
	}
	if inv.sweep != "soffice" {
		t.Errorf("sweep = %q, want soffice", inv.sweep)
	}
	if inv.timeout != e.timeout {
		t.Errorf("invocation timeout = %v, want engine tier %v", inv.timeout, e.timeout)
	}

	// The produced file must be renamed to the requested output path.
	data, err := os.ReadFile(output)
	if err != nil || len(data) == 0 {
		t.Errorf("output not moved into place: %v", err)
	}
}

func TestSofficeTimeoutTierDoubled(t *testing.T) {
	e := newSofficeEngine(EnginesConfig{
		SofficePath:           "soffice",
		SofficeTimeoutSeconds: 60,
	}, t.TempDir(), &mockRunner{}, testLogger())

	if e.timeout != 120*time.Second {
		t.Errorf("timeout = %v, want double the configured tier", e.timeout)
	}
}

func TestSofficeConvertRemovesProfile(t *testing.T) {
	mock := &mockRunner{onRun: producePDF(t)}
	e := newTestSofficeEngine(t, mock)

	input := writeFixture(t, "doc.odt", []byte("content"))
	output := filepath.Join(t.TempDir(), "doc.pdf")

	if err := e.convert(context.Background(), input, output); err != nil {
		t.Fatalf("convert: %v", err)
	}

	entries, err := os.ReadDir(e.tempDir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "lo-profile-") {
			t.Errorf("profile directory not cleaned up: %s", entry.Name())
		}
	}
}

func TestSofficeConvertDistinctProfilesPerCall(t *testing.T) {
	mock := &mockRunner{onRun: producePDF(t)}
	e := newTestSofficeEngine(t, mock)

	input := writeFixture(t, "doc.rtf", []byte("content"))
	out1 := filepath.Join(t.TempDir(), "a.pdf")
	out2 := filepath.Join(t.TempDir(), "b.pdf")

	if err := e.convert(context.Background(), input, out1); err != nil {
		t.Fatal(err)
	}
	if err := e.convert(context.Background(), input, out2); err != nil {
		t.Fatal(err)
	}

	profile := func(inv engineInvocation) string {
		for _, arg := range inv.argv {
			if strings.HasPrefix(arg, "-env:UserInstallation=") {
				return arg
			}
		}
		return ""
	}
	if p1, p2 := profile(mock.invocations[0]), profile(mock.invocations[1]); p1 == p2 {
		t.Errorf("profile reused across calls: %s", p1)
	}
}

func TestSofficeConvertUnavailable(t *testing.T) {
	mock := &mockRunner{}
	e := newTestSofficeEngine(t, mock)
	e.binary = filepath.Join(t.TempDir(), "missing", "soffice")

	err := e.convert(context.Background(), "in.docx", "out.pdf")
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("error = %v, want ErrEngineUnavailable", err)
	}
	if len(mock.invocations) != 0 {
		t.Error("runner invoked despite missing binary")
	}
}

func TestSofficeConvertRunnerFailure(t *testing.T) {
	engineErr := convError(ErrEngineFailed, "", "exit 77")
	mock := &mockRunner{onRun: func(engineInvocation) error { return engineErr }}
	e := newTestSofficeEngine(t, mock)

	input := writeFixture(t, "doc.doc", []byte("content"))
	err := e.convert(context.Background(), input, filepath.Join(t.TempDir(), "doc.pdf"))
	if !errors.Is(err, ErrEngineFailed) {
		t.Fatalf("error = %v, want ErrEngineFailed", err)
	}
}

func TestSofficeConvertNoOutput(t *testing.T) {
	// Runner reports success but never writes the output file.
	mock := &mockRunner{}
	e := newTestSofficeEngine(t, mock)

	input := writeFixture(t, "doc.xls", []byte("content"))
	err := e.convert(context.Background(), input, filepath.Join(t.TempDir(), "doc.pdf"))
	if !errors.Is(err, ErrOutputMissing) {
		t.Fatalf("error = %v, want ErrOutputMissing", err)
	}
}

func TestBinaryPresent(t *testing.T) {
	tests := []struct {
		name   string
		binary string
		want   bool
	}{
		{name: "explicit path exists", binary: fakeBinary(t, "soffice"), want: true},
		{name: "explicit path missing", binary: filepath.Join(t.TempDir(), "nope"), want: false},
		{name: "bare name not on PATH", binary: "no-such-engine-binary-xyz", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := binaryPresent(tt.binary); got != tt.want {
				t.Errorf("binaryPresent(%q) = %v, want %v", tt.binary, got, tt.want)
			}
		})
	}
}

func TestVerifyOutput(t *testing.T) {
	if err := verifyOutput(writeFixture(t, "ok.pdf", []byte("%PDF"))); err != nil {
		t.Errorf("unexpected error for non-empty file: %v", err)
	}

	empty := writeFixture(t, "empty.pdf", nil)
	if err := verifyOutput(empty); !errors.Is(err, ErrOutputMissing) {
		t.Errorf("error = %v, want ErrOutputMissing for empty file", err)
	}

	if err := verifyOutput(filepath.Join(t.TempDir(), "absent.pdf")); !errors.Is(err, ErrOutputMissing) {
		t.Errorf("error = %v, want ErrOutputMissing for absent file", err)
	}
}

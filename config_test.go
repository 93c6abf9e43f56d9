package doc2pdf

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Engines.SofficePath != "soffice" {
		t.Errorf("SofficePath = %q, want soffice", cfg.Engines.SofficePath)
	}
	if cfg.Engines.SofficeTimeout() != 120*time.Second {
		t.Errorf("SofficeTimeout = %v, want 120s", cfg.Engines.SofficeTimeout())
	}
	if cfg.Engines.WkhtmltopdfLargeTimeout() <= cfg.Engines.WkhtmltopdfTimeout() {
		t.Error("large timeout tier should exceed the normal tier")
	}
	if cfg.Upload.MaxBytes != 100<<20 {
		t.Errorf("MaxBytes = %d, want %d", cfg.Upload.MaxBytes, 100<<20)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		_, err := LoadConfig("")
		if !errors.Is(err, ErrEmptyConfigName) {
			t.Errorf("error = %v, want ErrEmptyConfigName", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("overrides merge onto defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
engines:
  sofficePath: /opt/libreoffice/program/soffice
  sofficeTimeoutSeconds: 300
upload:
  allowedExtensions: [txt, docx]
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig: %v", err)
		}
		if cfg.Engines.SofficePath != "/opt/libreoffice/program/soffice" {
			t.Errorf("SofficePath = %q", cfg.Engines.SofficePath)
		}
		if cfg.Engines.SofficeTimeout() != 300*time.Second {
			t.Errorf("SofficeTimeout = %v, want 300s", cfg.Engines.SofficeTimeout())
		}
		// Untouched fields keep their defaults.
		if cfg.Engines.WkhtmltopdfPath != "wkhtmltopdf" {
			t.Errorf("WkhtmltopdfPath = %q, want default", cfg.Engines.WkhtmltopdfPath)
		}
	})

	t.Run("unknown fields rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("bogusKey: true\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfig(path)
		if !errors.Is(err, ErrConfigParse) {
			t.Errorf("error = %v, want ErrConfigParse", err)
		}
	})
}

func TestUploadConfigAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		ext     string
		want    bool
	}{
		{name: "empty list allows any supported", allowed: nil, ext: "docx", want: true},
		{name: "empty list still rejects unsupported", allowed: nil, ext: "exe", want: false},
		{name: "subset allows member", allowed: []string{"txt", "docx"}, ext: "txt", want: true},
		{name: "subset rejects non-member", allowed: []string{"txt", "docx"}, ext: "xlsx", want: false},
		{name: "subset cannot widen beyond supported", allowed: []string{"exe"}, ext: "exe", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := UploadConfig{AllowedExtensions: tt.allowed}
			if got := cfg.Allowed(tt.ext); got != tt.want {
				t.Errorf("Allowed(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestValidateDirs(t *testing.T) {
	cfg := DefaultConfig()
	base := t.TempDir()
	cfg.Dirs.Uploads = filepath.Join(base, "up")
	cfg.Dirs.Converted = filepath.Join(base, "conv")
	cfg.Dirs.Temp = filepath.Join(base, "tmp")

	if err := cfg.ValidateDirs(); !errors.Is(err, ErrConfigDirs) {
		t.Errorf("error = %v, want ErrConfigDirs", err)
	}

	for _, dir := range []string{cfg.Dirs.Uploads, cfg.Dirs.Converted, cfg.Dirs.Temp} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatal(err)
		}
	}
	if err := cfg.ValidateDirs(); err != nil {
		t.Errorf("unexpected error with all dirs present: %v", err)
	}
}

package doc2pdf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-doc2pdf/internal/fileutil"
	"github.com/alnah/go-doc2pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrConfigDirs      = errors.New("config directory missing")
)

// Config holds everything the conversion core and its transport need: the
// working directories, the engine binaries, and the timeout tiers.
type Config struct {
	Dirs    DirsConfig    `yaml:"dirs"`
	Engines EnginesConfig `yaml:"engines"`
	Upload  UploadConfig  `yaml:"upload"`
}

// DirsConfig defines the working directories. All three must exist before
// the core is constructed; the core creates and removes only its own
// per-call scratch subdirectories underneath Temp.
type DirsConfig struct {
	Uploads   string `yaml:"uploads"`
	Converted string `yaml:"converted"`
	Temp      string `yaml:"temp"`
}

// EnginesConfig defines the external rendering binaries and their timeout
// tiers in seconds.
type EnginesConfig struct {
	SofficePath     string `yaml:"sofficePath"`
	WkhtmltopdfPath string `yaml:"wkhtmltopdfPath"`

	SofficeTimeoutSeconds       int `yaml:"sofficeTimeoutSeconds"`
	WkhtmltopdfTimeoutSeconds   int `yaml:"wkhtmltopdfTimeoutSeconds"`
	WkhtmltopdfLargeTimeoutSecs int `yaml:"wkhtmltopdfLargeTimeoutSeconds"`
}

// UploadConfig defines transport-side limits consumed by the server binary.
// An empty AllowedExtensions means every extension the core supports.
type UploadConfig struct {
	MaxBytes          int64    `yaml:"maxBytes"`
	CleanupTTLMinutes int      `yaml:"cleanupTTLMinutes"`
	AllowedExtensions []string `yaml:"allowedExtensions"`
}

// Allowed reports whether the transport accepts uploads with the given
// extension (lowercase, no dot). The core's supported-type table is always
// the outer bound.
func (c *UploadConfig) Allowed(ext string) bool {
	if _, ok := supportedTypes[ext]; !ok {
		return false
	}
	if len(c.AllowedExtensions) == 0 {
		return true
	}
	for _, allowed := range c.AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// DefaultConfig returns a configuration with working directories under the
// current directory and engine binaries resolved from PATH.
func DefaultConfig() *Config {
	return &Config{
		Dirs: DirsConfig{
			Uploads:   "uploads",
			Converted: "converted",
			Temp:      "tmp",
		},
		Engines: EnginesConfig{
			SofficePath:                 "soffice",
			WkhtmltopdfPath:             "wkhtmltopdf",
			SofficeTimeoutSeconds:       120,
			WkhtmltopdfTimeoutSeconds:   60,
			WkhtmltopdfLargeTimeoutSecs: 300,
		},
		Upload: UploadConfig{
			MaxBytes:          100 << 20, // 100 MB
			CleanupTTLMinutes: 60,
		},
	}
}

// SofficeTimeout returns the office-suite timeout as a duration.
func (c *EnginesConfig) SofficeTimeout() time.Duration {
	return time.Duration(c.SofficeTimeoutSeconds) * time.Second
}

// WkhtmltopdfTimeout returns the normal HTML-to-PDF timeout as a duration.
func (c *EnginesConfig) WkhtmltopdfTimeout() time.Duration {
	return time.Duration(c.WkhtmltopdfTimeoutSeconds) * time.Second
}

// WkhtmltopdfLargeTimeout returns the large-file HTML-to-PDF timeout tier.
func (c *EnginesConfig) WkhtmltopdfLargeTimeout() time.Duration {
	return time.Duration(c.WkhtmltopdfLargeTimeoutSecs) * time.Second
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard
// locations. Returns an error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	var configPath string
	var err error

	if fileutil.IsFilePath(nameOrPath) {
		configPath = nameOrPath
	} else {
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	return cfg, nil
}

// resolveConfigPath searches for a config file by name in standard
// locations. Tries extensions in order: .yaml, .yml. Tries locations in
// order: current directory, <user config dir>/go-doc2pdf/.
func resolveConfigPath(name string) (string, error) {
	extensions := []string{".yaml", ".yml"}
	triedPaths := make([]string, 0, len(extensions)*2)

	for _, ext := range extensions {
		localPath := name + ext
		if fileutil.FileExists(localPath) {
			return localPath, nil
		}
		triedPaths = append(triedPaths, localPath)
	}

	userConfigDir, err := os.UserConfigDir()
	if err == nil {
		for _, ext := range extensions {
			userPath := filepath.Join(userConfigDir, "go-doc2pdf", name+ext)
			if fileutil.FileExists(userPath) {
				return userPath, nil
			}
			triedPaths = append(triedPaths, userPath)
		}
	}

	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(triedPaths, ", "))
}

// ValidateDirs checks that all configured working directories exist. The
// core never creates its own top-level directories; the caller bootstraps
// them at startup.
func (c *Config) ValidateDirs() error {
	for _, dir := range []string{c.Dirs.Uploads, c.Dirs.Converted, c.Dirs.Temp} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return fmt.Errorf("%w: %s", ErrConfigDirs, dir)
		}
	}
	return nil
}

package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// sweepStale removes regular files in dir older than ttl. Run before
// accepting a new upload so the upload and converted directories do not
// grow without bound; job state for swept files remains in memory and the
// download endpoint reports the file as gone.
func sweepStale(dir string, ttl time.Duration, log zerolog.Logger) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("stale sweep skipped")
		return
	}

	cutoff := time.Now().Add(-ttl)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not remove stale file")
			continue
		}
		log.Debug().Str("path", path).Msg("removed stale file")
	}
}

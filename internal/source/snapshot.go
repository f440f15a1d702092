package source

import (
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"district-dashboard/internal/models"
)

const snapshotVersion = "v1"

// snapshotPath derives a file name from everything that changes the parsed
// result.
func (l *Loader) snapshotPath() string {
	h := sha256.New()
	for _, f := range []File{l.opts.Stores, l.opts.FootTraffic, l.opts.Sales, l.opts.Coordinates} {
		fmt.Fprintf(h, "%s|%s\n", f.Path, f.Encoding)
	}
	fmt.Fprintf(h, "%s\n%+v\n", l.opts.Category, *l.schema)
	sum := hex.EncodeToString(h.Sum(nil))[:16]
	return filepath.Join(l.opts.CacheDir, fmt.Sprintf("dataset_%s_%s.gob", sum, snapshotVersion))
}

func (l *Loader) saveSnapshot(ds *models.Dataset) error {
	if l.opts.CacheDir == "" {
		return nil
	}
	if err := os.MkdirAll(l.opts.CacheDir, 0o755); err != nil {
		return err
	}

	// Encode into a temp file and rename it into place so readers never see
	// a partial snapshot.
	path := l.snapshotPath()
	tmp, err := os.CreateTemp(l.opts.CacheDir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(ds); err != nil {
		tmp.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// loadSnapshot returns the cached dataset when it is newer than every
// source file.
func (l *Loader) loadSnapshot() (*models.Dataset, bool) {
	if l.opts.CacheDir == "" {
		return nil, false
	}

	file, err := os.Open(l.snapshotPath())
	if err != nil {
		return nil, false
	}
	defer file.Close()

	var ds models.Dataset
	if err := gob.NewDecoder(file).Decode(&ds); err != nil {
		l.logger.Warn("discarding unreadable snapshot", "error", err)
		return nil, false
	}

	for _, f := range []File{l.opts.Stores, l.opts.FootTraffic, l.opts.Sales, l.opts.Coordinates} {
		info, err := os.Stat(f.Path)
		if err != nil || !info.ModTime().Before(ds.LoadedAt) {
			return nil, false
		}
	}
	return &ds, true
}

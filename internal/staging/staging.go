// Package staging keeps downloaded documents on disk for the lifetime of a
// single request.
package staging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"summarybot/internal/domain"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
	filePref = "doc-"
)

var unsafeHintRe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type Area struct {
	dir string
	log *slog.Logger
}

type File struct {
	Path string
	Size int64
}

func New(dir string, log *slog.Logger) (*Area, error) {
	if dir == "" {
		return nil, errors.New("staging dir is empty")
	}

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	return &Area{dir: dir, log: log}, nil
}

func (a *Area) Dir() string {
	return a.dir
}

// Stage copies r into a new file named after hint plus a random suffix.
// When limit is positive and r holds more than limit bytes, nothing is kept
// and domain.ErrFileTooLarge is returned.
func (a *Area) Stage(r io.Reader, hint string, limit int64) (*File, error) {
	name := filePref + unsafeHintRe.ReplaceAllString(hint, "_") + "-" + uuid.NewString()
	path := filepath.Join(a.dir, name)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
	if err != nil {
		return nil, fmt.Errorf("create staged file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}

	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()

	switch {
	case copyErr != nil:
		err = fmt.Errorf("write staged file: %w", copyErr)
	case closeErr != nil:
		err = fmt.Errorf("close staged file: %w", closeErr)
	case limit > 0 && n > limit:
		err = fmt.Errorf("%w: more than %d bytes", domain.ErrFileTooLarge, limit)
	}

	if err != nil {
		if removeErr := os.Remove(path); removeErr != nil {
			err = errors.Join(err, fmt.Errorf("remove staged file: %w", removeErr))
		}

		return nil, err
	}

	return &File{Path: path, Size: n}, nil
}

func (f *File) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read staged file: %w", err)
	}

	return data, nil
}

// Remove deletes the file. Removing an already missing file is not an error.
func (f *File) Remove() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove staged file: %w", err)
	}

	return nil
}

// Sweep removes staged files last modified before now-maxAge. Those can
// only be left behind by a crashed process. Files Stage did not name are
// never touched, so the directory may be shared.
func (a *Area) Sweep(now time.Time, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	cutoff := now.Add(-maxAge)
	removed := 0

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePref) {
			continue
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			if !errors.Is(infoErr, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("stat %s: %w", entry.Name(), infoErr))
			}
			continue
		}

		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(a.dir, entry.Name())
		if removeErr := os.Remove(path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", entry.Name(), removeErr))
			continue
		}

		removed++
		a.log.Debug("Stale staged file is removed",
			"path", path,
			"modTime", info.ModTime())
	}

	return removed, errors.Join(errs...)
}

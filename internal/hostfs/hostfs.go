// Package hostfs answers the front-end's questions about the host file
// system outside any terminal session.
package hostfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// MaxReadBytes caps ReadAll. Larger files yield ErrTooLarge.
const MaxReadBytes = 8 << 20

var (
	ErrTooLarge = errors.New("file too large")
	ErrNotText  = errors.New("file is not valid UTF-8")
)

type Entry struct {
	Filename string `json:"filename"`
	IsDir    bool   `json:"isDir"`
	Path     string `json:"path"`
}

// List returns the entries of dir in name order.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, Entry{
			Filename: entry.Name(),
			IsDir:    entry.IsDir(),
			Path:     filepath.Join(dir, entry.Name()),
		})
	}
	return out, nil
}

// ReadAll returns the contents of a UTF-8 text file.
func ReadAll(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxReadBytes+1))
	if err != nil {
		return "", err
	}
	if len(data) > MaxReadBytes {
		return "", fmt.Errorf("%w: %s", ErrTooLarge, path)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s", ErrNotText, path)
	}
	return string(data), nil
}

// Times holds file timestamps in milliseconds since the Unix epoch.
type Times struct {
	ModifiedTime int64 `json:"modifiedTime"`
	AccessedTime int64 `json:"accessedTime"`
	CreatedTime  int64 `json:"createdTime"`
}

// Stat reports path's timestamps. Where the file system keeps no birth
// time, CreatedTime falls back to the modification time.
func Stat(path string) (Times, error) {
	modified, accessed, created, err := fileTimes(path)
	if err != nil {
		return Times{}, err
	}
	if created.IsZero() {
		created = modified
	}
	return Times{
		ModifiedTime: modified.UnixMilli(),
		AccessedTime: accessed.UnixMilli(),
		CreatedTime:  created.UnixMilli(),
	}, nil
}

// Kind classifies a path for TestFiles.
type Kind int

const (
	Missing Kind = iota
	Directory
	File
)

// TestFiles classifies each name relative to baseDir. Absolute names are
// used as given. Any stat failure counts as Missing.
func TestFiles(baseDir string, names []string) []Kind {
	out := make([]Kind, len(names))
	for i, name := range names {
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, name)
		}
		info, err := os.Stat(path)
		switch {
		case err != nil:
			out[i] = Missing
		case info.IsDir():
			out[i] = Directory
		default:
			out[i] = File
		}
	}
	return out
}

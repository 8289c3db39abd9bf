// Package archive extracts downloaded zip archives into named table sources.
package archive

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/xxh3"
)

// Source is one extracted archive member.
type Source struct {
	// Name is the member path inside the archive.
	Name string `json:"name"`
	// Path is where the member was written.
	Path string `json:"path"`
	Size int64  `json:"size"`
	// Digest is the XXH3-64 of the member contents.
	Digest uint64 `json:"digest"`
}

// DigestHex returns the digest as 16 lowercase hex digits.
func (s Source) DigestHex() string {
	return fmt.Sprintf("%016x", s.Digest)
}

// Stem returns the member's base name without extension.
func (s Source) Stem() string {
	base := filepath.Base(s.Name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsDatabase reports whether the member looks like a SQLite file.
func (s Source) IsDatabase() bool {
	switch strings.ToLower(filepath.Ext(s.Name)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// Sources is the extracted content of one archive.
type Sources []Source

// Find returns the member whose base name equals name, with or without its
// extension. "author" matches both "author.sqlite" and "data/author.db".
func (s Sources) Find(name string) (Source, bool) {
	for _, src := range s {
		if filepath.Base(src.Name) == name || src.Stem() == name {
			return src, true
		}
	}
	return Source{}, false
}

// Database returns the first SQLite member. Book archives hold exactly one.
func (s Sources) Database() (Source, bool) {
	for _, src := range s {
		if src.IsDatabase() {
			return src, true
		}
	}
	return Source{}, false
}

// ExtractFile extracts the zip archive at path into dir.
func ExtractFile(path, dir string) (Sources, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	return Extract(f, info.Size(), dir)
}

// Extract writes every file member of the zip archive into dir, keeping the
// member's relative path. Members that would land outside dir are rejected.
func Extract(r io.ReaderAt, size int64, dir string) (Sources, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}

	var sources Sources
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := filepath.FromSlash(f.Name)
		if !filepath.IsLocal(name) {
			return nil, fmt.Errorf("archive member %s escapes extraction directory", strconv.Quote(f.Name))
		}

		src, err := extractMember(f, filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		sources = append(sources, src)
	}

	return sources, nil
}

func extractMember(f *zip.File, dst string) (Source, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Source{}, err
	}

	rc, err := f.Open()
	if err != nil {
		return Source{}, err
	}
	defer rc.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return Source{}, err
	}

	h := xxh3.New()
	n, err := io.Copy(io.MultiWriter(out, h), rc)
	if err != nil {
		out.Close()
		return Source{}, err
	}
	if err := out.Close(); err != nil {
		return Source{}, err
	}

	return Source{Name: f.Name, Path: dst, Size: n, Digest: h.Sum64()}, nil
}

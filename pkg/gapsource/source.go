// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package gapsource

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Kind tells where reports come from.
type Kind string

const (
	KindArchive Kind = "archive"
	KindLoose   Kind = "loose"
)

// Source gives access to the gap reports of one run.
type Source interface {
	Kind() Kind
	// Origin is the archive path or loose-file pattern.
	Origin() string
	Names() []string
	// Lookup returns the report name for a subrun.
	Lookup(subrun int) (string, bool)
	Open(name string) (io.ReadCloser, error)
}

// ReportName is the file name suffix of a subrun's report.
func ReportName(subrun int) string {
	return fmt.Sprintf("%08d_gaps.txt", subrun)
}

func lookup(names []string, subrun int) (string, bool) {
	want := ReportName(subrun)
	for _, n := range names {
		if strings.Contains(n, want) {
			return n, true
		}
	}
	return "", false
}

// ArchiveSource serves reports from a tar archive held in memory.
type ArchiveSource struct {
	path    string
	names   []string
	entries map[string][]byte
}

var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	zstdMagic  = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress detects a gzip, bzip2 or zstd stream by its magic bytes,
// whatever the file is named. Anything else is returned as is.
func decompress(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(4)
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return gz, func() { _ = gz.Close() }, nil
	case bytes.HasPrefix(head, bzip2Magic):
		return bzip2.NewReader(br), func() {}, nil
	case bytes.HasPrefix(head, zstdMagic):
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, err
		}
		return dec, dec.Close, nil
	}
	return br, func() {}, nil
}

// OpenArchive reads every regular file of the tar archive at p, which may be
// gzip, bzip2 or zstd compressed. Any read error, including a truncated or
// corrupt archive, is returned.
func OpenArchive(p string) (*ArchiveSource, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r, release, err := decompress(f)
	if err != nil {
		return nil, fmt.Errorf("failed to open compressed archive: %w", err)
	}
	defer release()

	src := &ArchiveSource{path: p, entries: map[string][]byte{}}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		src.names = append(src.names, hdr.Name)
		src.entries[hdr.Name] = data
	}
	if len(src.names) == 0 {
		return nil, errors.New("archive holds no files")
	}
	sort.Strings(src.names)
	return src, nil
}

func (s *ArchiveSource) Kind() Kind      { return KindArchive }
func (s *ArchiveSource) Origin() string  { return s.path }
func (s *ArchiveSource) Names() []string { return s.names }

func (s *ArchiveSource) Lookup(subrun int) (string, bool) {
	return lookup(s.names, subrun)
}

func (s *ArchiveSource) Open(name string) (io.ReadCloser, error) {
	data, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%s: %s: %w", s.path, name, os.ErrNotExist)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// LooseSource serves reports from individual files.
type LooseSource struct {
	pattern string
	paths   []string
}

// NewLooseSource wraps an already resolved list of report paths.
func NewLooseSource(pattern string, paths []string) *LooseSource {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	return &LooseSource{pattern: pattern, paths: sorted}
}

func (s *LooseSource) Kind() Kind      { return KindLoose }
func (s *LooseSource) Origin() string  { return s.pattern }
func (s *LooseSource) Names() []string { return s.paths }

func (s *LooseSource) Lookup(subrun int) (string, bool) {
	want := ReportName(subrun)
	for _, p := range s.paths {
		if strings.HasSuffix(filepath.Base(p), want) {
			return p, true
		}
	}
	return "", false
}

func (s *LooseSource) Open(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

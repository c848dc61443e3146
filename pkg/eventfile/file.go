// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package eventfile

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Compression is the codec wrapped around a frame stream.
type Compression string

const (
	CompressionNone  Compression = "none"
	CompressionGzip  Compression = "gzip"
	CompressionBzip2 Compression = "bzip2"
	CompressionZstd  Compression = "zstd"
)

// CompressionFor picks the codec from the file extension.
func CompressionFor(path string) Compression {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		return CompressionGzip
	case ".bz2":
		return CompressionBzip2
	case ".zst", ".zstd":
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// File is an open event file.
type File struct {
	*Reader
	Path    string
	closers []func() error
}

// Open opens path for sequential frame reading.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	file := &File{Path: path, closers: []func() error{f.Close}}

	var src io.Reader = f
	switch CompressionFor(path) {
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		file.closers = append(file.closers, gz.Close)
		src = gz
	case CompressionBzip2:
		src = bzip2.NewReader(f)
	case CompressionZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		file.closers = append(file.closers, func() error { dec.Close(); return nil })
		src = dec
	}
	file.Reader = NewReader(src)
	return file, nil
}

// Close releases the decompressor and the underlying file.
func (f *File) Close() error {
	var errs []error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	f.closers = nil
	return errors.Join(errs...)
}

// FirstEventHeader scans path from the beginning and returns the first frame
// header that decodes and validates. Frames with invalid headers are skipped.
func FirstEventHeader(ctx context.Context, path string) (EventHeader, error) {
	f, err := Open(path)
	if err != nil {
		return EventHeader{}, err
	}
	defer func() { _ = f.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return EventHeader{}, err
		}
		frame, err := f.Next()
		if errors.Is(err, io.EOF) {
			return EventHeader{}, fmt.Errorf("%s: %w", path, ErrNoEventHeader)
		}
		if err != nil {
			return EventHeader{}, fmt.Errorf("%s: %w", path, err)
		}
		hdr, ok, err := frame.EventHeader()
		if !ok || err != nil {
			continue
		}
		if hdr.Validate() != nil {
			continue
		}
		return hdr, nil
	}
}

// FileWriter is an event file open for writing.
type FileWriter struct {
	*Writer
	closers []func() error
}

// Create creates path and returns a writer compressing according to the file
// extension. bzip2 output is not supported.
func Create(path string) (*FileWriter, error) {
	comp := CompressionFor(path)
	if comp == CompressionBzip2 {
		return nil, fmt.Errorf("writing bzip2 event files is not supported: %s", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	fw := &FileWriter{closers: []func() error{f.Close}}

	var dst io.Writer = f
	switch comp {
	case CompressionGzip:
		gz := gzip.NewWriter(f)
		fw.closers = append(fw.closers, gz.Close)
		dst = gz
	case CompressionZstd:
		enc, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd stream %s: %w", path, err)
		}
		fw.closers = append(fw.closers, enc.Close)
		dst = enc
	}
	fw.Writer = NewWriter(dst)
	return fw, nil
}

// Close flushes the compressor and closes the file.
func (w *FileWriter) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}

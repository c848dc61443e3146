// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package grltable

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// EventsUnset marks an event count left for downstream enrichment.
const EventsUnset int32 = -1

// DefaultPrefix is the file name prefix of per-run tables.
const DefaultPrefix = "NuSources_GRL_"

const (
	npyMagic    = "\x93NUMPY"
	descr       = "[('run', '<f8'), ('start', '<f8'), ('stop', '<f8'), ('livetime', '<f8'), ('events', '<i4')]"
	recordSize  = 4*8 + 4
	align       = 64
	maxHeader   = 1 << 16
	// maxPrealloc bounds the rows allocated up front from an unverified shape.
	maxPrealloc = 1 << 16
)

var (
	// ErrFormat is wrapped by every decode failure.
	ErrFormat = errors.New("not a GRL table")

	shapePattern = regexp.MustCompile(`'shape':\s*\((\d+),?\)`)
	descrPattern = regexp.MustCompile(`'descr':\s*(\[.*?\])`)
	orderPattern = regexp.MustCompile(`'fortran_order':\s*(True|False)`)
)

// Row is one good interval. Start and Stop are MJD; Livetime is in days.
type Row struct {
	Run      int     `json:"run" yaml:"run"`
	Start    float64 `json:"start" yaml:"start"`
	Stop     float64 `json:"stop" yaml:"stop"`
	Livetime float64 `json:"livetime" yaml:"livetime"`
	Events   int32   `json:"events" yaml:"events"`
}

// NewRow builds a row with livetime derived from start and stop.
func NewRow(run int, start, stop float64) Row {
	return Row{Run: run, Start: start, Stop: stop, Livetime: stop - start, Events: EventsUnset}
}

// Path returns <dir>/<season>/<prefix><run>.npy.
func Path(dir, season, prefix string, run int) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return filepath.Join(dir, season, fmt.Sprintf("%s%d.npy", prefix, run))
}

// Encode writes rows as a version 1.0 .npy file.
func Encode(w io.Writer, rows []Row) error {
	header := fmt.Sprintf("{'descr': %s, 'fortran_order': False, 'shape': (%d,), }", descr, len(rows))
	// magic(6) + version(2) + length(2) + header + '\n' padded to align
	pad := align - (len(npyMagic)+4+len(header)+1)%align
	if pad == align {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	_, _ = bw.WriteString(npyMagic)
	_, _ = bw.Write([]byte{1, 0})
	_ = binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	_, _ = bw.WriteString(header)

	var rec [recordSize]byte
	le := binary.LittleEndian
	for _, r := range rows {
		le.PutUint64(rec[0:], math.Float64bits(float64(r.Run)))
		le.PutUint64(rec[8:], math.Float64bits(r.Start))
		le.PutUint64(rec[16:], math.Float64bits(r.Stop))
		le.PutUint64(rec[24:], math.Float64bits(r.Livetime))
		le.PutUint32(rec[32:], uint32(r.Events))
		if _, err := bw.Write(rec[:]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Decode reads a table written by Encode or by numpy.save with the same
// dtype. When r reports its length, a shape larger than the remaining
// bytes is rejected before any row is read.
func Decode(r io.Reader) ([]Row, error) {
	size := int64(-1)
	if l, ok := r.(interface{ Len() int }); ok {
		size = int64(l.Len())
	}
	return decode(r, size)
}

func decode(r io.Reader, size int64) ([]Row, error) {
	br := bufio.NewReader(r)
	var pre [8]byte
	if _, err := io.ReadFull(br, pre[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if string(pre[:6]) != npyMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrFormat)
	}

	var headerLen uint32
	offset := int64(len(pre))
	switch pre[6] {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		headerLen = uint32(n)
		offset += 2
	case 2, 3:
		if err := binary.Read(br, binary.LittleEndian, &headerLen); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		offset += 4
	default:
		return nil, fmt.Errorf("%w: unsupported version %d.%d", ErrFormat, pre[6], pre[7])
	}
	if headerLen > maxHeader {
		return nil, fmt.Errorf("%w: header of %d bytes", ErrFormat, headerLen)
	}
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	n, err := parseHeader(string(header))
	if err != nil {
		return nil, err
	}
	offset += int64(headerLen)
	if size >= 0 && int64(n) > (size-offset)/recordSize {
		return nil, fmt.Errorf("%w: shape (%d,) exceeds the %d bytes of data", ErrFormat, n, size-offset)
	}

	rows := make([]Row, 0, min(n, maxPrealloc))
	var rec [recordSize]byte
	le := binary.LittleEndian
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(br, rec[:]); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrFormat, i, err)
		}
		rows = append(rows, Row{
			Run:      int(math.Float64frombits(le.Uint64(rec[0:]))),
			Start:    math.Float64frombits(le.Uint64(rec[8:])),
			Stop:     math.Float64frombits(le.Uint64(rec[16:])),
			Livetime: math.Float64frombits(le.Uint64(rec[24:])),
			Events:   int32(le.Uint32(rec[32:])),
		})
	}
	return rows, nil
}

func parseHeader(h string) (int, error) {
	m := descrPattern.FindStringSubmatch(h)
	if m == nil || normalize(m[1]) != normalize(descr) {
		return 0, fmt.Errorf("%w: unexpected dtype in header %q", ErrFormat, strings.TrimSpace(h))
	}
	if o := orderPattern.FindStringSubmatch(h); o == nil || o[1] != "False" {
		return 0, fmt.Errorf("%w: fortran order is not supported", ErrFormat)
	}
	s := shapePattern.FindStringSubmatch(h)
	if s == nil {
		return 0, fmt.Errorf("%w: header has no one-dimensional shape", ErrFormat)
	}
	n, err := strconv.Atoi(s[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad shape %q", ErrFormat, s[1])
	}
	return n, nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, `"`, `'`)), "")
}

// Write atomically replaces path with rows, creating parent directories.
// Readers never observe a partial table.
func Write(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, rows); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Read loads the table at path.
func Read(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rows, err := decode(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}

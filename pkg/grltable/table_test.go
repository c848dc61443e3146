// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package grltable

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	return []Row{
		NewRow(115985, 55348.15184421, 55348.16083262),
		NewRow(115985, 55348.16084532, 55348.49999999),
	}
}

func TestEncodeHeaderLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleRows()))
	data := buf.Bytes()

	require.Equal(t, "\x93NUMPY", string(data[:6]))
	assert.Equal(t, []byte{1, 0}, data[6:8])
	headerLen := int(binary.LittleEndian.Uint16(data[8:10]))
	assert.Zero(t, (10+headerLen)%64)

	header := string(data[10 : 10+headerLen])
	assert.True(t, strings.HasSuffix(header, "\n"))
	assert.Contains(t, header, "'descr': [('run', '<f8'), ('start', '<f8'), ('stop', '<f8'), ('livetime', '<f8'), ('events', '<i4')]")
	assert.Contains(t, header, "'shape': (2,)")
	assert.Len(t, data, 10+headerLen+2*36)
}

func TestEncodeDecodeExact(t *testing.T) {
	rows := sampleRows()
	rows[1].Events = 4242

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rows))
	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, EventsUnset, got[0].Events)
	assert.Equal(t, rows[0].Stop-rows[0].Start, got[0].Livetime)
}

func TestEncodeDecodeEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, nil))
	assert.Contains(t, buf.String(), "'shape': (0,)")
	got, err := Decode(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeVersion2Header(t *testing.T) {
	header := "{'descr': [('run', '<f8'), ('start', '<f8'), ('stop', '<f8'), ('livetime', '<f8'), ('events', '<i4')], 'fortran_order': False, 'shape': (1,), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{2, 0})
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(header))))
	buf.WriteString(header)
	var body bytes.Buffer
	require.NoError(t, Encode(&body, []Row{NewRow(1, 2, 3)}))
	raw := body.Bytes()
	buf.Write(raw[len(raw)-36:])

	got, err := Decode(&buf)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, NewRow(1, 2, 3), got[0])
}

// rawTable builds a version 1.0 table whose header declares shape rows
// followed by body.
func rawTable(shape string, body []byte) []byte {
	header := "{'descr': [('run', '<f8'), ('start', '<f8'), ('stop', '<f8'), ('livetime', '<f8'), ('events', '<i4')], 'fortran_order': False, 'shape': (" + shape + ",), }\n"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	buf.Write(body)
	return buf.Bytes()
}

func TestDecodeRejects(t *testing.T) {
	var good bytes.Buffer
	require.NoError(t, Encode(&good, sampleRows()))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", []byte("\x93NUMPZ\x01\x00\x00\x00")},
		{"bad version", []byte("\x93NUMPY\x09\x00\x00\x00")},
		{"truncated rows", good.Bytes()[:good.Len()-10]},
		{"other dtype", []byte(strings.Replace(good.String(), "'<i4'", "'<i8'", 1))},
		{"fortran order", []byte(strings.Replace(good.String(), "False", "True ", 1))},
		{"shape beyond data", rawTable("1152921504606846976", nil)},
		{"shape beyond int", rawTable("99999999999999999999", nil)},
		{"shape one row short", rawTable("3", make([]byte, 2*36))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestDecodeHugeShapeFromStream(t *testing.T) {
	// A plain io.Reader has no length, so the shape cannot be checked up front.
	r := io.MultiReader(bytes.NewReader(rawTable("1152921504606846976", make([]byte, 36))))
	_, err := Decode(r)
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "row 1")
}

func TestReadRejectsHugeShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.npy")
	require.NoError(t, os.WriteFile(path, rawTable("1152921504606846976", nil), 0o644))

	_, err := Read(path)
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestWriteReadFile(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, "IC86.2012", "", 120156)
	assert.Equal(t, filepath.Join(dir, "IC86.2012", "NuSources_GRL_120156.npy"), path)

	require.NoError(t, Write(path, sampleRows()))
	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files may be left behind")

	require.NoError(t, Write(path, sampleRows()[:1]))
	got, err = Read(path)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReadMissing(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.npy"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package eventfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/telekom/nusources-grl/pkg/daqtime"
)

const (
	frameMagic   = "[i3]"
	FrameVersion = uint32(6)

	// EventHeaderKey names the payload holding an encoded EventHeader.
	EventHeaderKey = "I3EventHeader"

	maxKeys        = 1 << 16
	maxPayloadSize = 256 << 20
	headerSize     = 32
)

// Stop identifies the kind of frame.
type Stop byte

const (
	StopGeometry    Stop = 'G'
	StopCalibration Stop = 'C'
	StopDetector    Stop = 'D'
	StopDAQ         Stop = 'Q'
	StopPhysics     Stop = 'P'
)

var (
	// ErrBadFrame is returned when the stream does not hold a well-formed frame.
	ErrBadFrame = errors.New("bad event frame")
	// ErrNoEventHeader is returned when a file holds no decodable event header.
	ErrNoEventHeader = errors.New("no event header found")
)

// Frame is one decoded frame. Keys keeps payloads in file order.
type Frame struct {
	Stop Stop
	Keys []Key
}

// Key is a named payload.
type Key struct {
	Name    string
	Payload []byte
}

// Get returns the payload stored under name.
func (f *Frame) Get(name string) ([]byte, bool) {
	for _, k := range f.Keys {
		if k.Name == name {
			return k.Payload, true
		}
	}
	return nil, false
}

// EventHeader decodes the frame's event header. ok is false when the frame
// has none.
func (f *Frame) EventHeader() (hdr EventHeader, ok bool, err error) {
	payload, ok := f.Get(EventHeaderKey)
	if !ok {
		return EventHeader{}, false, nil
	}
	hdr, err = DecodeEventHeader(payload)
	return hdr, true, err
}

// EventHeader identifies an event and the DAQ times bracketing it.
type EventHeader struct {
	Run   uint32
	Sub   uint32
	Event uint32
	Start daqtime.Time
	End   daqtime.Time
}

// Validate checks that both times are in range and Start <= End.
func (h EventHeader) Validate() error {
	if err := h.Start.Validate(); err != nil {
		return fmt.Errorf("start time: %w", err)
	}
	if err := h.End.Validate(); err != nil {
		return fmt.Errorf("end time: %w", err)
	}
	if h.End.MJD() < h.Start.MJD() {
		return fmt.Errorf("end time %s precedes start time %s", h.End, h.Start)
	}
	return nil
}

// Encode serializes h in the event header payload layout.
func (h EventHeader) Encode() []byte {
	buf := make([]byte, headerSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], h.Run)
	le.PutUint32(buf[4:], h.Sub)
	le.PutUint32(buf[8:], h.Event)
	le.PutUint16(buf[12:], uint16(h.Start.Year))
	le.PutUint64(buf[14:], h.Start.Ticks)
	le.PutUint16(buf[22:], uint16(h.End.Year))
	le.PutUint64(buf[24:], h.End.Ticks)
	return buf
}

// DecodeEventHeader parses an event header payload.
func DecodeEventHeader(payload []byte) (EventHeader, error) {
	if len(payload) != headerSize {
		return EventHeader{}, fmt.Errorf("%w: event header is %d bytes, want %d", ErrBadFrame, len(payload), headerSize)
	}
	le := binary.LittleEndian
	return EventHeader{
		Run:   le.Uint32(payload[0:]),
		Sub:   le.Uint32(payload[4:]),
		Event: le.Uint32(payload[8:]),
		Start: daqtime.New(int(le.Uint16(payload[12:])), le.Uint64(payload[14:])),
		End:   daqtime.New(int(le.Uint16(payload[22:])), le.Uint64(payload[24:])),
	}, nil
}

// Reader decodes frames from a stream.
type Reader struct {
	r      *bufio.Reader
	frames int
}

// NewReader returns a Reader over an uncompressed frame stream.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next frame, or io.EOF when the stream ends cleanly on a
// frame boundary.
func (r *Reader) Next() (*Frame, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r.r, magic[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, r.fail("magic", err)
	}
	if string(magic[:]) != frameMagic {
		return nil, fmt.Errorf("%w: frame %d: unexpected tag %q", ErrBadFrame, r.frames, magic[:])
	}

	var hdr struct {
		Version uint32
		Stop    byte
		NKeys   uint32
	}
	if err := binary.Read(r.r, binary.LittleEndian, &hdr); err != nil {
		return nil, r.fail("header", err)
	}
	if hdr.Version != FrameVersion {
		return nil, fmt.Errorf("%w: frame %d: unsupported version %d", ErrBadFrame, r.frames, hdr.Version)
	}
	if hdr.NKeys > maxKeys {
		return nil, fmt.Errorf("%w: frame %d: %d keys", ErrBadFrame, r.frames, hdr.NKeys)
	}

	frame := &Frame{Stop: Stop(hdr.Stop), Keys: make([]Key, 0, hdr.NKeys)}
	for i := uint32(0); i < hdr.NKeys; i++ {
		var nameLen uint16
		if err := binary.Read(r.r, binary.LittleEndian, &nameLen); err != nil {
			return nil, r.fail("key name length", err)
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r.r, name); err != nil {
			return nil, r.fail("key name", err)
		}
		var size uint32
		if err := binary.Read(r.r, binary.LittleEndian, &size); err != nil {
			return nil, r.fail("payload length", err)
		}
		if size > maxPayloadSize {
			return nil, fmt.Errorf("%w: frame %d: payload %q is %d bytes", ErrBadFrame, r.frames, name, size)
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(r.r, payload); err != nil {
			return nil, r.fail("payload", err)
		}
		frame.Keys = append(frame.Keys, Key{Name: string(name), Payload: payload})
	}
	r.frames++
	return frame, nil
}

func (r *Reader) fail(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: frame %d: truncated %s", ErrBadFrame, r.frames, what)
	}
	return fmt.Errorf("frame %d: reading %s: %w", r.frames, what, err)
}

// Writer encodes frames to a stream.
type Writer struct {
	w io.Writer
}

// NewWriter returns a Writer producing an uncompressed frame stream.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame encodes one frame.
func (w *Writer) WriteFrame(f *Frame) error {
	var buf bytes.Buffer
	buf.WriteString(frameMagic)
	le := binary.LittleEndian
	_ = binary.Write(&buf, le, FrameVersion)
	buf.WriteByte(byte(f.Stop))
	_ = binary.Write(&buf, le, uint32(len(f.Keys)))
	for _, k := range f.Keys {
		if len(k.Name) > 0xffff {
			return fmt.Errorf("key name too long: %d bytes", len(k.Name))
		}
		_ = binary.Write(&buf, le, uint16(len(k.Name)))
		buf.WriteString(k.Name)
		_ = binary.Write(&buf, le, uint32(len(k.Payload)))
		buf.Write(k.Payload)
	}
	_, err := w.w.Write(buf.Bytes())
	return err
}

// WriteEventHeader writes a physics frame holding only h.
func (w *Writer) WriteEventHeader(h EventHeader) error {
	return w.WriteFrame(&Frame{
		Stop: StopPhysics,
		Keys: []Key{{Name: EventHeaderKey, Payload: h.Encode()}},
	})
}

package live

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Niakdashit/pilmedia-lp-wizardry-forge-sub011/pkg/snap"
)

// Encoder handles encoding of live protocol frames
type Encoder struct {
	w io.Writer
}

// NewEncoder creates a new encoder
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// WriteUvarint writes an unsigned varint
func (e *Encoder) WriteUvarint(v uint64) error {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, v)
	_, err := e.w.Write(buf[:n])
	return err
}

// WriteString writes a length-prefixed string
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUvarint(uint64(len(s))); err != nil {
		return err
	}
	_, err := e.w.Write([]byte(s))
	return err
}

// WriteBytes writes raw bytes
func (e *Encoder) WriteBytes(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

// WriteFloat writes a float64 as eight little-endian bytes
func (e *Encoder) WriteFloat(f float64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	return e.WriteBytes(tmp[:])
}

// Decoder handles decoding of live protocol frames
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a new decoder
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:   r,
		buf: make([]byte, 64),
	}
}

// ReadUvarint reads an unsigned varint
func (d *Decoder) ReadUvarint() (uint64, error) {
	return binary.ReadUvarint(d)
}

// ReadByte implements io.ByteReader
func (d *Decoder) ReadByte() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// maxString bounds the strings a frame may carry
const maxString = 1 << 16

// ReadString reads a length-prefixed string
func (d *Decoder) ReadString() (string, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return "", err
	}
	if length > maxString {
		return "", fmt.Errorf("string of %d bytes exceeds limit", length)
	}
	if length > uint64(len(d.buf)) {
		d.buf = make([]byte, length)
	}
	if _, err := io.ReadFull(d.r, d.buf[:length]); err != nil {
		return "", err
	}
	return string(d.buf[:length]), nil
}

// ReadFloat reads a float64 written by WriteFloat
func (d *Decoder) ReadFloat() (float64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(d.r, tmp[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(tmp[:])), nil
}

// GuidesFrame is the binary form of a show or hide guides notification. A
// hide notification has Dragging false and no guides.
type GuidesFrame struct {
	ElementID string
	Dragging  bool
	Guides    []snap.Guide
}

var kindCodes = map[snap.Kind]byte{snap.KindGrid: 0, snap.KindElement: 1, snap.KindCenter: 2}
var codeKinds = map[byte]snap.Kind{0: snap.KindGrid, 1: snap.KindElement, 2: snap.KindCenter}

// EncodeGuides encodes a guides frame:
// type, element id, dragging flag, count, then per guide kind, orientation,
// position and producing element id
func EncodeGuides(f GuidesFrame) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	enc.WriteBytes([]byte{byte(FrameGuides)})
	enc.WriteString(f.ElementID)
	flag := byte(0)
	if f.Dragging {
		flag = 1
	}
	enc.WriteBytes([]byte{flag})
	enc.WriteUvarint(uint64(len(f.Guides)))
	for _, g := range f.Guides {
		orient := byte(0)
		if g.Orientation == snap.Vertical {
			orient = 1
		}
		enc.WriteBytes([]byte{kindCodes[g.Kind], orient})
		enc.WriteFloat(g.Position)
		enc.WriteString(g.ElementID)
	}
	return buf.Bytes()
}

// DecodeGuides decodes a frame produced by EncodeGuides
func DecodeGuides(data []byte) (GuidesFrame, error) {
	if len(data) == 0 || data[0] != byte(FrameGuides) {
		return GuidesFrame{}, errors.New("not a guides frame")
	}
	dec := NewDecoder(bytes.NewReader(data[1:]))

	var f GuidesFrame
	var err error
	if f.ElementID, err = dec.ReadString(); err != nil {
		return GuidesFrame{}, fmt.Errorf("element id: %w", err)
	}
	flag, err := dec.ReadByte()
	if err != nil {
		return GuidesFrame{}, fmt.Errorf("dragging flag: %w", err)
	}
	f.Dragging = flag == 1

	count, err := dec.ReadUvarint()
	if err != nil {
		return GuidesFrame{}, fmt.Errorf("guide count: %w", err)
	}
	// every guide takes at least eleven bytes
	if count > uint64(len(data))/11 {
		return GuidesFrame{}, fmt.Errorf("guide count %d exceeds frame size", count)
	}
	f.Guides = make([]snap.Guide, 0, count)
	for i := uint64(0); i < count; i++ {
		kind, err := dec.ReadByte()
		if err != nil {
			return GuidesFrame{}, fmt.Errorf("guide %d: %w", i, err)
		}
		orient, err := dec.ReadByte()
		if err != nil {
			return GuidesFrame{}, fmt.Errorf("guide %d: %w", i, err)
		}
		pos, err := dec.ReadFloat()
		if err != nil {
			return GuidesFrame{}, fmt.Errorf("guide %d: %w", i, err)
		}
		id, err := dec.ReadString()
		if err != nil {
			return GuidesFrame{}, fmt.Errorf("guide %d: %w", i, err)
		}
		k, ok := codeKinds[kind]
		if !ok {
			return GuidesFrame{}, fmt.Errorf("guide %d: unknown kind %d", i, kind)
		}
		g := snap.Guide{Kind: k, Orientation: snap.Horizontal, Position: pos, ElementID: id}
		if orient == 1 {
			g.Orientation = snap.Vertical
		}
		f.Guides = append(f.Guides, g)
	}
	return f, nil
}

// EncodePointer encodes a pointer frame
func EncodePointer(p Pointer) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FramePointer), byte(p.Type)})
	enc.WriteFloat(p.X)
	enc.WriteFloat(p.Y)
	if p.Type == PointerDown {
		enc.WriteString(p.ID)
	}
	return buf.Bytes()
}

// DecodePointer decodes a pointer frame
func DecodePointer(data []byte) (Pointer, error) {
	if len(data) < 2 || data[0] != byte(FramePointer) {
		return Pointer{}, errors.New("not a pointer frame")
	}
	p := Pointer{Type: PointerType(data[1])}
	if p.Type < PointerDown || p.Type > PointerUp {
		return Pointer{}, fmt.Errorf("unknown pointer type %d", data[1])
	}
	dec := NewDecoder(bytes.NewReader(data[2:]))
	var err error
	if p.X, err = dec.ReadFloat(); err != nil {
		return Pointer{}, fmt.Errorf("pointer x: %w", err)
	}
	if p.Y, err = dec.ReadFloat(); err != nil {
		return Pointer{}, fmt.Errorf("pointer y: %w", err)
	}
	if p.Type == PointerDown {
		if p.ID, err = dec.ReadString(); err != nil {
			return Pointer{}, fmt.Errorf("pointer id: %w", err)
		}
	}
	return p, nil
}

// EncodeControl encodes a control frame with optional uvarint arguments
func EncodeControl(msg string, args ...uint64) []byte {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.WriteBytes([]byte{byte(FrameControl)})
	enc.WriteString(msg)
	for _, a := range args {
		enc.WriteUvarint(a)
	}
	return buf.Bytes()
}

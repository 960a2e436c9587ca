package gdsii

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dyuri/gdsview/internal/model"
	"golang.org/x/text/encoding"
)

const (
	maxRecordLength = 0xfffe // Largest even length a header can declare
	streamVersion   = 600
)

// Writer encodes records into a stream
type Writer struct {
	w       io.Writer
	encoder *encoding.Encoder // Applied to ASCII payloads, nil writes raw bytes
	n       int64
}

// NewWriter creates a new record writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// SetCharset encodes ASCII payloads with enc before writing
func (w *Writer) SetCharset(enc encoding.Encoding) {
	if enc == nil {
		w.encoder = nil
		return
	}
	w.encoder = enc.NewEncoder()
}

// Written returns the number of bytes written so far
func (w *Writer) Written() int64 {
	return w.n
}

// WriteRecord writes one record with the given raw payload
func (w *Writer) WriteRecord(t RecordType, dt DataType, data []byte) error {
	length := headerSize + len(data)
	if length%2 != 0 {
		return fmt.Errorf("write %s: odd payload length %d", t, len(data))
	}
	if length > maxRecordLength {
		return fmt.Errorf("write %s: payload of %d bytes exceeds record limit", t, len(data))
	}

	hdr := [headerSize]byte{0, 0, byte(t), byte(dt)}
	binary.BigEndian.PutUint16(hdr[0:2], uint16(length))
	n, err := w.w.Write(hdr[:])
	w.n += int64(n)
	if err != nil {
		return fmt.Errorf("write %s header: %w", t, err)
	}
	if len(data) == 0 {
		return nil
	}
	n, err = w.w.Write(data)
	w.n += int64(n)
	if err != nil {
		return fmt.Errorf("write %s payload: %w", t, err)
	}
	return nil
}

// NoData writes a record without payload (ENDEL, ENDSTR, ...)
func (w *Writer) NoData(t RecordType) error {
	return w.WriteRecord(t, DataNone, nil)
}

// Int16 writes a record of big-endian int16 values
func (w *Writer) Int16(t RecordType, vals ...int16) error {
	buf := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return w.WriteRecord(t, DataInt16, buf)
}

// Int32 writes a record of big-endian int32 values
func (w *Writer) Int32(t RecordType, vals ...int32) error {
	buf := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(buf[i*4:], uint32(v))
	}
	return w.WriteRecord(t, DataInt32, buf)
}

// Real64 writes a record of 8-byte excess-64 reals
func (w *Writer) Real64(t RecordType, vals ...float64) error {
	buf := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		enc, err := EncodeReal64(v)
		if err != nil {
			return fmt.Errorf("write %s: %w", t, err)
		}
		buf = append(buf, enc[:]...)
	}
	return w.WriteRecord(t, DataReal64, buf)
}

// ASCII writes a string record, null-padding it to an even length
func (w *Writer) ASCII(t RecordType, s string) error {
	if w.encoder != nil {
		encoded, err := w.encoder.String(s)
		if err != nil {
			return fmt.Errorf("write %s: encode %q: %w", t, s, err)
		}
		s = encoded
	}
	buf := []byte(s)
	if len(buf)%2 != 0 {
		buf = append(buf, 0)
	}
	return w.WriteRecord(t, DataASCII, buf)
}

// XY writes a coordinate record
func (w *Writer) XY(points []model.Point) error {
	vals := make([]int32, 0, 2*len(points))
	for _, p := range points {
		vals = append(vals, p.X, p.Y)
	}
	return w.Int32(RecordXY, vals...)
}

// WriteLayout writes a complete stream for layout. Timestamps are written
// as zero so output is reproducible.
func WriteLayout(out io.Writer, layout *model.Layout) error {
	return NewWriter(out).WriteLayout(layout)
}

// WriteLayout writes a complete stream for layout
func (w *Writer) WriteLayout(layout *model.Layout) error {
	version := layout.Version
	if version == 0 {
		version = streamVersion
	}
	var dates [12]int16

	// Write library header
	if err := w.Int16(RecordHeader, version); err != nil {
		return err
	}
	if err := w.Int16(RecordBgnLib, dates[:]...); err != nil {
		return err
	}
	name := layout.Name
	if name == "" {
		name = "LIB"
	}
	if err := w.ASCII(RecordLibName, name); err != nil {
		return err
	}
	if err := w.Real64(RecordUnits, layout.UserUnitsPerDBUnit, layout.MetersPerDBUnit); err != nil {
		return err
	}

	// Write structures
	for i := range layout.Structures {
		if err := w.writeStructure(&layout.Structures[i], dates[:]); err != nil {
			return fmt.Errorf("write structure %q: %w", layout.Structures[i].Name, err)
		}
	}

	return w.NoData(RecordEndLib)
}

func (w *Writer) writeStructure(s *model.Structure, dates []int16) error {
	if err := w.Int16(RecordBgnStr, dates...); err != nil {
		return err
	}
	if err := w.ASCII(RecordStrName, s.Name); err != nil {
		return err
	}
	for i := range s.Elements {
		if err := w.writeElement(&s.Elements[i]); err != nil {
			return fmt.Errorf("write element %d: %w", i, err)
		}
	}
	return w.NoData(RecordEndStr)
}

func (w *Writer) writeElement(el *model.Element) error {
	var start RecordType
	switch el.Kind {
	case model.Boundary:
		start = RecordBoundary
	case model.Path:
		start = RecordPath
	case model.SRef:
		start = RecordSRef
	case model.ARef:
		start = RecordARef
	case model.Box:
		start = RecordBox
	default:
		return fmt.Errorf("unknown element kind %d", el.Kind)
	}
	if err := w.NoData(start); err != nil {
		return err
	}

	if el.Ref != nil {
		if err := w.writeRef(el.Kind, el.Ref); err != nil {
			return err
		}
	} else {
		if err := w.Int16(RecordLayer, el.Layer); err != nil {
			return err
		}
		typeRecord := RecordDataType
		if el.Kind == model.Box {
			typeRecord = RecordBoxType
		}
		if err := w.Int16(typeRecord, el.DataType); err != nil {
			return err
		}
	}

	if el.Path != nil {
		if err := w.Int16(RecordPathType, int16(el.Path.Type)); err != nil {
			return err
		}
		if err := w.Int32(RecordWidth, el.Path.Width); err != nil {
			return err
		}
	}

	if len(el.Points) > 0 {
		if err := w.XY(el.Points); err != nil {
			return err
		}
	}
	return w.NoData(RecordEndEl)
}

func (w *Writer) writeRef(kind model.ElementKind, ref *model.RefAttrs) error {
	if err := w.ASCII(RecordSName, ref.Name); err != nil {
		return err
	}

	tr := ref.Transform
	if tr.Reflect || tr.AngleIsAbsolute || tr.MagIsAbsolute || tr.Angle != 0 || tr.Magnification != 1 {
		var flags [2]byte
		if tr.Reflect {
			flags[0] |= 0x80
		}
		if tr.AngleIsAbsolute {
			flags[1] |= 0x02
		}
		if tr.MagIsAbsolute {
			flags[1] |= 0x04
		}
		if err := w.WriteRecord(RecordSTrans, DataBitArray, flags[:]); err != nil {
			return err
		}
		if tr.Magnification != 1 {
			if err := w.Real64(RecordMag, tr.Magnification); err != nil {
				return err
			}
		}
		if tr.Angle != 0 {
			if err := w.Real64(RecordAngle, tr.Angle); err != nil {
				return err
			}
		}
	}

	if kind == model.ARef {
		return w.Int16(RecordColRow, ref.Cols, ref.Rows)
	}
	return nil
}

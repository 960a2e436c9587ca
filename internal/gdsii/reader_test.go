package gdsii

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// TestReaderFraming tests that records are split by their declared length
func TestReaderFraming(t *testing.T) {
	stream := []byte{
		0x00, 0x06, 0x00, 0x02, 0x02, 0x58, // HEADER 600
		0x00, 0x04, 0x11, 0x00, // ENDEL
		0x00, 0x0c, 0x10, 0x03, 0, 0, 0, 1, 0xff, 0xff, 0xff, 0xfe, // XY (1,-2)
	}

	rr := NewReader(bytes.NewReader(stream))
	var offsets []int64
	var types []RecordType
	for {
		rec, err := rr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		offsets = append(offsets, rec.Offset)
		types = append(types, rec.Type)
	}

	wantTypes := []RecordType{RecordHeader, RecordEndEl, RecordXY}
	wantOffsets := []int64{0, 6, 10}
	if len(types) != len(wantTypes) {
		t.Fatalf("Got %d records, want %d", len(types), len(wantTypes))
	}
	for i := range wantTypes {
		if types[i] != wantTypes[i] {
			t.Errorf("Record %d type = %s, want %s", i, types[i], wantTypes[i])
		}
		if offsets[i] != wantOffsets[i] {
			t.Errorf("Record %d offset = %d, want %d", i, offsets[i], wantOffsets[i])
		}
	}
	if rr.Offset() != int64(len(stream)) {
		t.Errorf("Offset = %d, want %d", rr.Offset(), len(stream))
	}
}

// TestReaderPayload tests that the payload excludes the header
func TestReaderPayload(t *testing.T) {
	records, err := ReadAll(bytes.NewReader([]byte{0x00, 0x06, 0x0d, 0x02, 0x00, 0x05}))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Got %d records, want 1", len(records))
	}
	rec := records[0]
	if rec.Type != RecordLayer || rec.DataType != DataInt16 {
		t.Errorf("Header = %s/%s, want LAYER/int16", rec.Type, rec.DataType)
	}
	if !bytes.Equal(rec.Data, []byte{0x00, 0x05}) {
		t.Errorf("Data = %x, want 0005", rec.Data)
	}
}

// TestReaderZeroLengthEndsStream tests that block padding ends the stream
func TestReaderZeroLengthEndsStream(t *testing.T) {
	stream := []byte{
		0x00, 0x04, 0x04, 0x00, // ENDLIB
		0x00, 0x00, 0x00, 0x00, // padding
		0x00, 0x04, 0x11, 0x00, // never reached
	}
	records, err := ReadAll(bytes.NewReader(stream))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].Type != RecordEndLib {
		t.Errorf("Got %v, want a single ENDLIB record", records)
	}
}

// TestReaderPartialHeader tests that a trailing partial header is not an error
func TestReaderPartialHeader(t *testing.T) {
	records, err := ReadAll(bytes.NewReader([]byte{0x00, 0x04, 0x11, 0x00, 0x00, 0x08}))
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Got %d records, want 1", len(records))
	}
}

func TestReaderInvalidLength(t *testing.T) {
	tests := []struct {
		name   string
		stream []byte
	}{
		{"below header", []byte{0x00, 0x02, 0x00, 0x00}},
		{"odd", []byte{0x00, 0x05, 0x00, 0x00, 0x00}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := NewReader(bytes.NewReader(tt.stream))
			_, err := rr.Next()
			if !errors.Is(err, ErrInvalidRecordLength) {
				t.Fatalf("Next error = %v, want invalid record length", err)
			}
			var gerr *Error
			if !errors.As(err, &gerr) || gerr.Offset != 0 {
				t.Errorf("Error offset = %v, want 0", gerr)
			}
			// The error is sticky
			if _, again := rr.Next(); !errors.Is(again, ErrInvalidRecordLength) {
				t.Errorf("Second Next error = %v, want the same error", again)
			}
		})
	}
}

func TestReaderTruncatedPayload(t *testing.T) {
	stream := []byte{
		0x00, 0x04, 0x11, 0x00, // ENDEL
		0x00, 0x0c, 0x10, 0x03, 0, 0, 0, 1, // XY declaring 8 payload bytes, 4 present
	}
	rr := NewReader(bytes.NewReader(stream))
	if _, err := rr.Next(); err != nil {
		t.Fatalf("First Next failed: %v", err)
	}
	_, err := rr.Next()
	if !errors.Is(err, ErrTruncatedRecord) {
		t.Fatalf("Next error = %v, want truncated record", err)
	}
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Offset != 4 {
		t.Errorf("Error offset = %d, want 4", gerr.Offset)
	}
}

func TestErrorKinds(t *testing.T) {
	err := &Error{Kind: KindMissingUnits, Offset: 12, Msg: "no UNITS record in stream"}
	if !errors.Is(err, ErrMissingUnits) {
		t.Error("errors.Is(MissingUnits, ErrMissingUnits) = false")
	}
	if errors.Is(err, ErrTruncatedRecord) {
		t.Error("errors.Is(MissingUnits, ErrTruncatedRecord) = true")
	}
	if !err.IsFatal() {
		t.Error("MissingUnits is not fatal")
	}
	if (&Error{Kind: KindFieldLength}).IsFatal() {
		t.Error("FieldLength is fatal")
	}
	want := "missing units: no UNITS record in stream (at offset 0xc)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

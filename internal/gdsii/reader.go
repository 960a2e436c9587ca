package gdsii

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const headerSize = 4

// Reader splits a stream into records. It does not interpret payloads.
// A Reader is not restartable: once it has returned an error (including
// io.EOF) every later call returns the same error.
type Reader struct {
	r      *bufio.Reader
	offset int64
	err    error
}

// NewReader creates a new record reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Offset returns the number of bytes consumed so far
func (r *Reader) Offset() int64 {
	return r.offset
}

// Next returns the next record, or io.EOF once the stream ends.
//
// A header declaring length zero marks the zero fill that pads the last
// physical block and ends the stream. Lengths below 4 or odd lengths fail
// with ErrInvalidRecordLength; a short payload fails with ErrTruncatedRecord.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	rec, err := r.next()
	if err != nil {
		r.err = err
	}
	return rec, err
}

func (r *Reader) next() (Record, error) {
	start := r.offset

	// Read header
	var hdr [headerSize]byte
	n, err := io.ReadFull(r.r, hdr[:])
	r.offset += int64(n)
	if err != nil {
		// A partial header is the tail of a block, not a record
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, &Error{Kind: KindFileUnreadable, Offset: start, Msg: "read record header", Err: err}
	}

	length := binary.BigEndian.Uint16(hdr[0:2])
	if length == 0 {
		return Record{}, io.EOF
	}
	if length < headerSize || length%2 != 0 {
		return Record{}, &Error{
			Kind:   KindInvalidRecordLength,
			Offset: start,
			Msg:    fmt.Sprintf("record declares %d bytes", length),
		}
	}

	rec := Record{
		Type:     RecordType(hdr[2]),
		DataType: DataType(hdr[3]),
		Offset:   start,
	}

	// Read payload
	if size := int(length) - headerSize; size > 0 {
		rec.Data = make([]byte, size)
		n, err := io.ReadFull(r.r, rec.Data)
		r.offset += int64(n)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Record{}, &Error{
					Kind:   KindTruncatedRecord,
					Offset: start,
					Msg:    fmt.Sprintf("%s record wants %d payload bytes, got %d", rec.Type, size, n),
				}
			}
			return Record{}, &Error{Kind: KindFileUnreadable, Offset: start, Msg: "read record payload", Err: err}
		}
	}

	return rec, nil
}

// ReadAll reads every record until the end of the stream
func ReadAll(r io.Reader) ([]Record, error) {
	rr := NewReader(r)
	var records []Record
	for {
		rec, err := rr.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
}

package gdsii

import "fmt"

// ErrorKind classifies stream errors
type ErrorKind int

const (
	KindFileUnreadable ErrorKind = iota + 1
	KindInvalidRecordLength
	KindTruncatedRecord
	KindMissingUnits
	KindMissingStructName
	KindFieldLength
	KindFieldType
)

func (k ErrorKind) String() string {
	switch k {
	case KindFileUnreadable:
		return "file unreadable"
	case KindInvalidRecordLength:
		return "invalid record length"
	case KindTruncatedRecord:
		return "truncated record"
	case KindMissingUnits:
		return "missing units"
	case KindMissingStructName:
		return "missing structure name"
	case KindFieldLength:
		return "invalid field length"
	case KindFieldType:
		return "unexpected field type"
	}
	return "unknown error"
}

// Error is returned for every failure detected while reading a stream.
// Use errors.Is with the Err* sentinels to test the kind.
type Error struct {
	Kind   ErrorKind
	Offset int64 // Stream offset of the offending record, -1 if unknown
	Msg    string
	Err    error // Underlying cause
}

// Sentinels for errors.Is
var (
	ErrFileUnreadable      = &Error{Kind: KindFileUnreadable, Offset: -1}
	ErrInvalidRecordLength = &Error{Kind: KindInvalidRecordLength, Offset: -1}
	ErrTruncatedRecord     = &Error{Kind: KindTruncatedRecord, Offset: -1}
	ErrMissingUnits        = &Error{Kind: KindMissingUnits, Offset: -1}
	ErrMissingStructName   = &Error{Kind: KindMissingStructName, Offset: -1}
	ErrFieldLength         = &Error{Kind: KindFieldLength, Offset: -1}
	ErrFieldType           = &Error{Kind: KindFieldType, Offset: -1}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Offset >= 0 {
		msg = fmt.Sprintf("%s (at offset 0x%x)", msg, e.Offset)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsFatal reports whether the error aborts a parse
func (e *Error) IsFatal() bool {
	return e.Kind != KindFieldLength && e.Kind != KindFieldType
}

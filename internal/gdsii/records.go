package gdsii

import "fmt"

// RecordType is the second byte of a record header
type RecordType uint8

const (
	RecordHeader   RecordType = 0x00
	RecordBgnLib   RecordType = 0x01
	RecordLibName  RecordType = 0x02
	RecordUnits    RecordType = 0x03
	RecordEndLib   RecordType = 0x04
	RecordBgnStr   RecordType = 0x05
	RecordStrName  RecordType = 0x06
	RecordEndStr   RecordType = 0x07
	RecordBoundary RecordType = 0x08
	RecordPath     RecordType = 0x09
	RecordSRef     RecordType = 0x0a
	RecordARef     RecordType = 0x0b
	RecordText     RecordType = 0x0c
	RecordLayer    RecordType = 0x0d
	RecordDataType RecordType = 0x0e
	RecordWidth    RecordType = 0x0f
	RecordXY       RecordType = 0x10
	RecordEndEl    RecordType = 0x11
	RecordSName    RecordType = 0x12
	RecordColRow   RecordType = 0x13
	RecordSTrans   RecordType = 0x1a
	RecordMag      RecordType = 0x1b
	RecordAngle    RecordType = 0x1c
	RecordPathType RecordType = 0x21
	RecordBox      RecordType = 0x2d
	RecordBoxType  RecordType = 0x2e
)

var recordNames = map[RecordType]string{
	RecordHeader:   "HEADER",
	RecordBgnLib:   "BGNLIB",
	RecordLibName:  "LIBNAME",
	RecordUnits:    "UNITS",
	RecordEndLib:   "ENDLIB",
	RecordBgnStr:   "BGNSTR",
	RecordStrName:  "STRNAME",
	RecordEndStr:   "ENDSTR",
	RecordBoundary: "BOUNDARY",
	RecordPath:     "PATH",
	RecordSRef:     "SREF",
	RecordARef:     "AREF",
	RecordText:     "TEXT",
	RecordLayer:    "LAYER",
	RecordDataType: "DATATYPE",
	RecordWidth:    "WIDTH",
	RecordXY:       "XY",
	RecordEndEl:    "ENDEL",
	RecordSName:    "SNAME",
	RecordColRow:   "COLROW",
	RecordSTrans:   "STRANS",
	RecordMag:      "MAG",
	RecordAngle:    "ANGLE",
	RecordPathType: "PATHTYPE",
	RecordBox:      "BOX",
	RecordBoxType:  "BOXTYPE",
}

func (t RecordType) String() string {
	if name, ok := recordNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RECORD(0x%02x)", uint8(t))
}

// DataType is the third byte of a record header and declares how the
// payload is encoded.
type DataType uint8

const (
	DataNone     DataType = 0x00
	DataBitArray DataType = 0x01
	DataInt16    DataType = 0x02
	DataInt32    DataType = 0x03
	DataReal32   DataType = 0x04 // Never written by known tools, not decoded
	DataReal64   DataType = 0x05
	DataASCII    DataType = 0x06
)

func (d DataType) String() string {
	switch d {
	case DataNone:
		return "none"
	case DataBitArray:
		return "bitarray"
	case DataInt16:
		return "int16"
	case DataInt32:
		return "int32"
	case DataReal32:
		return "real32"
	case DataReal64:
		return "real64"
	case DataASCII:
		return "ascii"
	}
	return fmt.Sprintf("datatype(0x%02x)", uint8(d))
}

// Record is one length-prefixed unit of the stream
type Record struct {
	Type     RecordType
	DataType DataType
	Data     []byte // Payload without the 4-byte header
	Offset   int64  // Stream offset of the header
}

// Int16s decodes the payload as big-endian int16 values
func (rec Record) Int16s() ([]int16, error) {
	if err := rec.expect(DataInt16); err != nil {
		return nil, err
	}
	return DecodeInt16(rec.Data)
}

// Int32s decodes the payload as big-endian int32 values
func (rec Record) Int32s() ([]int32, error) {
	if err := rec.expect(DataInt32); err != nil {
		return nil, err
	}
	return DecodeInt32(rec.Data)
}

// Real64s decodes the payload as excess-64 base-16 reals
func (rec Record) Real64s() ([]float64, error) {
	if err := rec.expect(DataReal64); err != nil {
		return nil, err
	}
	return DecodeReal64(rec.Data)
}

// ASCII decodes the payload as a null-padded string
func (rec Record) ASCII() (string, error) {
	if err := rec.expect(DataASCII); err != nil {
		return "", err
	}
	return DecodeASCII(rec.Data)
}

func (rec Record) expect(dt DataType) error {
	if rec.DataType != dt {
		return &Error{
			Kind:   KindFieldType,
			Offset: rec.Offset,
			Msg:    fmt.Sprintf("%s record holds %s data, want %s", rec.Type, rec.DataType, dt),
		}
	}
	return nil
}

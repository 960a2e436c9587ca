package gdsii

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DecodeInt16 decodes big-endian int16 values. The payload must be a
// non-empty multiple of 2 bytes.
func DecodeInt16(b []byte) ([]int16, error) {
	if len(b) == 0 || len(b)%2 != 0 {
		return nil, fieldLengthError(len(b), 2)
	}
	vals := make([]int16, len(b)/2)
	for i := range vals {
		vals[i] = int16(binary.BigEndian.Uint16(b[i*2:]))
	}
	return vals, nil
}

// DecodeInt32 decodes big-endian int32 values. The payload must be a
// non-empty multiple of 4 bytes.
func DecodeInt32(b []byte) ([]int32, error) {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil, fieldLengthError(len(b), 4)
	}
	vals := make([]int32, len(b)/4)
	for i := range vals {
		vals[i] = int32(binary.BigEndian.Uint32(b[i*4:]))
	}
	return vals, nil
}

// DecodeReal64 decodes 8-byte reals. The format is not IEEE-754:
//
//	byte 0:    sign bit, then a 7-bit base-16 exponent in excess-64
//	bytes 1-7: 56-bit unsigned fraction
//
// value = sign * fraction/2^56 * 16^(exponent-64)
func DecodeReal64(b []byte) ([]float64, error) {
	if len(b) == 0 || len(b)%8 != 0 {
		return nil, fieldLengthError(len(b), 8)
	}
	vals := make([]float64, len(b)/8)
	for i := range vals {
		vals[i] = decodeReal64(b[i*8 : i*8+8])
	}
	return vals, nil
}

func decodeReal64(b []byte) float64 {
	exponent := int(b[0]&0x7f) - 64
	var mantissa uint64
	for _, c := range b[1:8] {
		mantissa = mantissa<<8 | uint64(c)
	}
	// 16^e * m/2^56 == m * 2^(4e-56); scaling by a power of two is exact
	v := math.Ldexp(float64(mantissa), 4*exponent-56)
	if b[0]&0x80 != 0 {
		v = -v
	}
	return v
}

// EncodeReal64 encodes v in the 8-byte excess-64 format. Zero encodes as
// eight zero bytes. Values outside 16^-65..16^63 cannot be represented.
func EncodeReal64(v float64) ([8]byte, error) {
	var out [8]byte
	if v == 0 {
		return out, nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return out, fmt.Errorf("encode real64: %v is not finite", v)
	}

	var sign byte
	if v < 0 {
		sign = 0x80
		v = -v
	}

	// v = frac * 2^exp2 with frac in [0.5, 1); pick the base-16 exponent
	// so the fraction lands in [1/16, 1)
	frac, exp2 := math.Frexp(v)
	exponent := (exp2 + 3) >> 2
	if exponent+64 < 0 || exponent+64 > 0x7f {
		return out, fmt.Errorf("encode real64: %v out of range", v)
	}
	mantissa := uint64(math.Ldexp(frac, 56+exp2-4*exponent))

	out[0] = sign | byte(exponent+64)
	for i := 7; i >= 1; i-- {
		out[i] = byte(mantissa)
		mantissa >>= 8
	}
	return out, nil
}

// DecodeASCII returns the payload as text, dropping the null byte used to
// pad odd-length strings.
func DecodeASCII(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", fieldLengthError(len(b), 2)
	}
	if n := len(b); n > 0 && b[n-1] == 0 {
		b = b[:n-1]
	}
	return string(b), nil
}

func fieldLengthError(n, unit int) error {
	return &Error{
		Kind:   KindFieldLength,
		Offset: -1,
		Msg:    fmt.Sprintf("%d bytes is not a non-empty multiple of %d", n, unit),
	}
}

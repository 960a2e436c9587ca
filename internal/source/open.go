// Package source opens layout streams from plain files, compressed files
// and files stored inside disk images.
package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dyuri/gdsview/internal/gdsii"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression identifies the container around a stream
type Compression int

const (
	Plain Compression = iota
	Gzip
	Zstd
	XZ
	LZ4
)

func (c Compression) String() string {
	switch c {
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case XZ:
		return "xz"
	case LZ4:
		return "lz4"
	}
	return "plain"
}

// Magic numbers of the supported containers
var magics = []struct {
	c     Compression
	magic []byte
}{
	{Gzip, []byte{0x1f, 0x8b}},
	{Zstd, []byte{0x28, 0xb5, 0x2f, 0xfd}},
	{XZ, []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}},
	{LZ4, []byte{0x04, 0x22, 0x4d, 0x18}},
}

// maxMagic is the longest magic number in magics
const maxMagic = 6

// Detect identifies the container from the first bytes of a file.
// A stream starts with a HEADER record (00 06 00 02), which matches none.
func Detect(head []byte) Compression {
	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.c
		}
	}
	return Plain
}

// readCloser couples a decompressing reader with the resources it uses
type readCloser struct {
	io.Reader
	closers []func() error
}

func (rc *readCloser) Close() error {
	var first error
	for i := len(rc.closers) - 1; i >= 0; i-- {
		if err := rc.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewReader detects the container of r and returns a reader of the
// decompressed stream. Closing it does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Compression, error) {
	rc, c, err := newReader(r)
	if err != nil {
		return nil, c, err
	}
	return rc, c, nil
}

func newReader(r io.Reader) (*readCloser, Compression, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(maxMagic)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, Plain, fmt.Errorf("read magic: %w", err)
	}

	c := Detect(head)
	rc := &readCloser{}
	switch c {
	case Gzip:
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("open gzip stream: %w", err)
		}
		rc.Reader = zr
		rc.closers = append(rc.closers, zr.Close)
	case Zstd:
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("open zstd stream: %w", err)
		}
		rc.Reader = dec
		rc.closers = append(rc.closers, func() error { dec.Close(); return nil })
	case XZ:
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, c, fmt.Errorf("open xz stream: %w", err)
		}
		rc.Reader = xr
	case LZ4:
		rc.Reader = lz4.NewReader(br)
	default:
		rc.Reader = br
	}
	return rc, c, nil
}

// Open opens path, which is either a file or an image reference of the
// form image.iso:/dir/file.gds, and returns the decompressed stream.
func Open(path string) (io.ReadCloser, Compression, error) {
	var (
		raw io.ReadCloser
		err error
	)
	if image, inner, ok := SplitImagePath(path); ok {
		raw, err = openInImage(image, inner)
	} else {
		raw, err = os.Open(path)
	}
	if err != nil {
		return nil, Plain, err
	}

	rc, c, err := newReader(raw)
	if err != nil {
		raw.Close()
		return nil, c, fmt.Errorf("%s: %w", path, err)
	}
	rc.closers = append([]func() error{raw.Close}, rc.closers...)
	return rc, c, nil
}

// ReadLayout opens and parses the layout at path. Failures to open the
// file are reported as gdsii.ErrFileUnreadable.
func ReadLayout(path string, opts ...gdsii.Option) (*model.Layout, error) {
	rc, _, err := Open(path)
	if err != nil {
		return nil, &gdsii.Error{Kind: gdsii.KindFileUnreadable, Offset: -1, Msg: path, Err: err}
	}
	defer rc.Close()

	layout, err := gdsii.Parse(rc, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return layout, nil
}

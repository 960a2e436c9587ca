package gdsii

import (
	"fmt"
	"io"
	"os"

	"github.com/dyuri/gdsview/internal/logging"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding"
)

// Stats counts what the parser saw besides the resulting model
type Stats struct {
	Records    int // Records read, including skipped ones
	Skipped    int // Records outside any structure or not understood
	Unresolved int // SRef/ARef elements naming no structure
}

// Parser builds a Layout from a record stream
type Parser struct {
	rr      *Reader
	log     logrus.FieldLogger
	decoder *encoding.Decoder // Applied to ASCII records, nil keeps raw bytes
	stats   Stats
}

// Option configures a Parser
type Option func(*Parser)

// WithLogger sets the logger used for diagnostics
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithCharset decodes ASCII payloads (names, library name) with enc.
// Bytes above 0x7f are otherwise kept as-is.
func WithCharset(enc encoding.Encoding) Option {
	return func(p *Parser) {
		if enc != nil {
			p.decoder = enc.NewDecoder()
		}
	}
}

// NewParser creates a parser reading records from r
func NewParser(r io.Reader, opts ...Option) *Parser {
	p := &Parser{
		rr:  NewReader(r),
		log: logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse reads a complete stream and returns the layout it describes
func Parse(r io.Reader, opts ...Option) (*model.Layout, error) {
	return NewParser(r, opts...).Parse()
}

// ParseFile parses the uncompressed stream stored at path
func ParseFile(path string, opts ...Option) (*model.Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &Error{Kind: KindFileUnreadable, Offset: -1, Msg: path, Err: err}
	}
	defer f.Close()
	return Parse(f, opts...)
}

// Stats returns counters collected by the last Parse call
func (p *Parser) Stats() Stats {
	return p.stats
}

// Parse consumes the stream. Either a complete Layout is returned or an
// error; partially built state is never returned.
func (p *Parser) Parse() (*model.Layout, error) {
	layout := model.NewLayout()

	// Find units. HEADER and LIBNAME precede them in a well-formed stream.
	if err := p.parseLibrary(layout); err != nil {
		return nil, err
	}

	// Parse structures
	for {
		rec, err := p.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rec.Type != RecordBgnStr {
			p.stats.Skipped++
			continue
		}

		s, err := p.parseStructure(rec)
		if err != nil {
			return nil, err
		}
		layout.Structures = append(layout.Structures, s)
	}

	p.resolveReferences(layout)

	p.log.WithFields(logrus.Fields{
		"structures": len(layout.Structures),
		"records":    p.stats.Records,
		"skipped":    p.stats.Skipped,
		"unresolved": p.stats.Unresolved,
	}).Debug("parsed layout")

	return layout, nil
}

func (p *Parser) next() (Record, error) {
	rec, err := p.rr.Next()
	if err == nil {
		p.stats.Records++
	}
	return rec, err
}

// parseLibrary scans up to and including the UNITS record
func (p *Parser) parseLibrary(layout *model.Layout) error {
	for {
		rec, err := p.next()
		if err == io.EOF {
			return &Error{Kind: KindMissingUnits, Offset: p.rr.Offset(), Msg: "no UNITS record in stream"}
		}
		if err != nil {
			return err
		}

		switch rec.Type {
		case RecordHeader:
			if v, err := rec.Int16s(); err == nil {
				layout.Version = v[0]
			}
		case RecordLibName:
			if name, err := p.text(rec); err == nil {
				layout.Name = name
			}
		case RecordUnits:
			units, err := rec.Real64s()
			if err != nil {
				return &Error{Kind: KindMissingUnits, Offset: rec.Offset, Msg: "undecodable UNITS record", Err: err}
			}
			if len(units) != 2 {
				return &Error{
					Kind:   KindMissingUnits,
					Offset: rec.Offset,
					Msg:    fmt.Sprintf("UNITS holds %d values, want 2", len(units)),
				}
			}
			layout.UserUnitsPerDBUnit = units[0]
			layout.MetersPerDBUnit = units[1]
			return nil
		default:
			p.stats.Skipped++
		}
	}
}

// parseStructure reads from just after BGNSTR through ENDSTR
func (p *Parser) parseStructure(bgn Record) (model.Structure, error) {
	s := model.Structure{Elements: make([]model.Element, 0)}

	// The name is mandatory and comes first
	for {
		rec, err := p.next()
		if err == io.EOF || (err == nil && rec.Type == RecordEndStr) {
			return s, &Error{Kind: KindMissingStructName, Offset: bgn.Offset, Msg: "structure has no STRNAME"}
		}
		if err != nil {
			return s, err
		}
		if rec.Type != RecordStrName {
			p.stats.Skipped++
			continue
		}
		name, err := p.text(rec)
		if err != nil || name == "" {
			return s, &Error{Kind: KindMissingStructName, Offset: rec.Offset, Msg: "empty STRNAME", Err: err}
		}
		s.Name = name
		break
	}

	log := p.log.WithField("structure", s.Name)
	for {
		rec, err := p.next()
		if err == io.EOF {
			log.Warn("stream ended inside structure")
			return s, nil
		}
		if err != nil {
			return s, err
		}

		switch rec.Type {
		case RecordEndStr:
			return s, nil
		case RecordBoundary, RecordPath, RecordSRef, RecordARef, RecordBox:
			el, closed, err := p.parseElement(rec, log)
			if err != nil {
				return s, err
			}
			s.Elements = append(s.Elements, el)
			if closed {
				return s, nil
			}
		default:
			p.stats.Skipped++
		}
	}
}

// parseElement reads an element span up to ENDEL. closed reports that the
// enclosing structure ended before ENDEL was seen.
func (p *Parser) parseElement(start Record, log logrus.FieldLogger) (model.Element, bool, error) {
	el := model.NewElement(elementKind(start.Type))

	for {
		rec, err := p.next()
		if err == io.EOF {
			log.WithField("element", el.Kind).Warn("stream ended inside element")
			return el, true, nil
		}
		if err != nil {
			return el, false, err
		}

		switch rec.Type {
		case RecordEndEl:
			return el, false, nil
		case RecordEndStr:
			log.WithField("element", el.Kind).Warn("structure ended inside element")
			return el, true, nil
		}

		if err := p.applyField(&el, rec); err != nil {
			// Bad fields leave the element default; they never abort a parse
			log.WithFields(logrus.Fields{
				"element": el.Kind,
				"record":  rec.Type,
			}).Debugf("ignoring field: %v", err)
		}
	}
}

// applyField stores one record of an element span into el
func (p *Parser) applyField(el *model.Element, rec Record) error {
	switch rec.Type {
	case RecordLayer:
		v, err := rec.Int16s()
		if err != nil {
			return err
		}
		el.Layer = v[0]

	case RecordDataType, RecordBoxType:
		v, err := rec.Int16s()
		if err != nil {
			return err
		}
		el.DataType = v[0]

	case RecordPathType:
		v, err := rec.Int16s()
		if err != nil {
			return err
		}
		if el.Path != nil {
			el.Path.Type = model.PathType(v[0])
		}

	case RecordWidth:
		v, err := rec.Int32s()
		if err != nil {
			return err
		}
		if el.Path != nil {
			el.Path.Width = v[0]
		}

	case RecordXY:
		v, err := rec.Int32s()
		if err != nil {
			return err
		}
		if len(v)%2 != 0 {
			return fmt.Errorf("XY holds %d coordinates, want pairs", len(v))
		}
		el.Points = make([]model.Point, len(v)/2)
		for i := range el.Points {
			el.Points[i] = model.Point{X: v[i*2], Y: v[i*2+1]}
		}

	case RecordSName:
		name, err := p.text(rec)
		if err != nil {
			return err
		}
		if el.Ref != nil {
			el.Ref.Name = name
		}

	case RecordSTrans:
		if len(rec.Data) < 2 {
			return fmt.Errorf("STRANS holds %d bytes, want 2", len(rec.Data))
		}
		if el.Ref != nil {
			el.Ref.Transform.Reflect = rec.Data[0]&0x80 != 0
			el.Ref.Transform.AngleIsAbsolute = rec.Data[1]&0x02 != 0
			el.Ref.Transform.MagIsAbsolute = rec.Data[1]&0x04 != 0
		}

	case RecordMag:
		v, err := rec.Real64s()
		if err != nil {
			return err
		}
		if el.Ref != nil {
			el.Ref.Transform.Magnification = v[0]
		}

	case RecordAngle:
		v, err := rec.Real64s()
		if err != nil {
			return err
		}
		if el.Ref != nil {
			el.Ref.Transform.Angle = v[0]
		}

	case RecordColRow:
		v, err := rec.Int16s()
		if err != nil {
			return err
		}
		if len(v) < 2 {
			return fmt.Errorf("COLROW holds %d values, want 2", len(v))
		}
		if el.Ref != nil {
			el.Ref.Cols = v[0]
			el.Ref.Rows = v[1]
		}

	default:
		p.stats.Skipped++
	}
	return nil
}

// resolveReferences links every SRef/ARef to the first structure whose name
// equals the referenced name. Unmatched references stay unresolved.
func (p *Parser) resolveReferences(layout *model.Layout) {
	for si := range layout.Structures {
		elements := layout.Structures[si].Elements
		for ei := range elements {
			ref := elements[ei].Ref
			if ref == nil || ref.Name == "" {
				continue
			}
			ref.Target = -1
			for ti := range layout.Structures {
				if layout.Structures[ti].Name == ref.Name {
					ref.Target = ti
					break
				}
			}
			if ref.Target < 0 {
				p.stats.Unresolved++
				p.log.WithFields(logrus.Fields{
					"structure": layout.Structures[si].Name,
					"ref":       ref.Name,
				}).Debug("unresolved reference")
			}
		}
	}
}

// text decodes an ASCII record, applying the configured charset
func (p *Parser) text(rec Record) (string, error) {
	s, err := rec.ASCII()
	if err != nil || p.decoder == nil {
		return s, err
	}
	decoded, err := p.decoder.String(s)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", rec.Type, err)
	}
	return decoded, nil
}

func elementKind(t RecordType) model.ElementKind {
	switch t {
	case RecordPath:
		return model.Path
	case RecordSRef:
		return model.SRef
	case RecordARef:
		return model.ARef
	case RecordBox:
		return model.Box
	}
	return model.Boundary
}

// Package part ties one layout file to the meshes built from it and
// rebuilds them when the file changes.
package part

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/djherbis/times"
	"github.com/dyuri/gdsview/internal/gdsii"
	"github.com/dyuri/gdsview/internal/logging"
	"github.com/dyuri/gdsview/internal/mesh"
	"github.com/dyuri/gdsview/internal/model"
	"github.com/dyuri/gdsview/internal/source"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/ungerik/go3d/float64/mat4"
)

// MeshSpec requests one mesh of a part
type MeshSpec struct {
	Layer   int16
	ZBounds [2]float32
	Color   mesh.Color
	STLPath string // Export target, empty for none
}

// Snapshot is the state produced by one successful load. It is never
// modified after the load that created it.
type Snapshot struct {
	Generation uuid.UUID
	LoadedAt   time.Time
	ModTime    time.Time
	Layout     *model.Layout
	Meshes     []*mesh.Mesh // One per MeshSpec, in order
}

// Part is a layout file plus the meshes requested from it.
// All methods are safe for concurrent use.
type Part struct {
	Path      string
	Specs     []MeshSpec
	Transform mat4.T

	log          logrus.FieldLogger
	parseOpts    []gdsii.Option
	buildOpts    []mesh.Option
	readLayout   func(path string, opts ...gdsii.Option) (*model.Layout, error)
	statModTime  func(path string) (time.Time, error)
	reloadMu     sync.Mutex // Serializes loads
	mu           sync.RWMutex
	current      *Snapshot
	lastModTime  time.Time
	lastLoadFail error
}

// Option configures a Part
type Option func(*Part)

// WithLogger sets the logger used for load diagnostics
func WithLogger(l logrus.FieldLogger) Option {
	return func(p *Part) {
		if l != nil {
			p.log = l
		}
	}
}

// WithTransform places the part in the scene
func WithTransform(m mat4.T) Option {
	return func(p *Part) {
		p.Transform = m
	}
}

// WithParseOptions passes options to the layout parser
func WithParseOptions(opts ...gdsii.Option) Option {
	return func(p *Part) {
		p.parseOpts = append(p.parseOpts, opts...)
	}
}

// WithBuildOptions passes options to the mesh builder
func WithBuildOptions(opts ...mesh.Option) Option {
	return func(p *Part) {
		p.buildOpts = append(p.buildOpts, opts...)
	}
}

// New creates an unloaded part
func New(path string, specs []MeshSpec, opts ...Option) *Part {
	p := &Part{
		Path:        path,
		Specs:       specs,
		Transform:   mat4.Ident,
		log:         logging.Discard(),
		readLayout:  source.ReadLayout,
		statModTime: modTime,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// modTime returns the modification time of path, or of the disk image
// holding it
func modTime(path string) (time.Time, error) {
	if image, _, ok := source.SplitImagePath(path); ok {
		path = image
	}
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return ts.ModTime(), nil
}

// Load parses the file and rebuilds every mesh. On failure the previous
// snapshot stays current and the error is returned.
func (p *Part) Load() error {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()
	return p.load()
}

func (p *Part) load() error {
	log := p.log.WithField("path", p.Path)

	mt, err := p.statModTime(p.Path)
	if err != nil {
		mt = time.Time{}
	}

	layout, err := p.readLayout(p.Path, p.parseOpts...)
	if err != nil {
		p.mu.Lock()
		p.lastModTime = mt
		p.lastLoadFail = err
		p.mu.Unlock()
		log.WithError(err).Warn("load failed, keeping previous state")
		return fmt.Errorf("load part %s: %w", p.Path, err)
	}

	builder := mesh.NewBuilder(append([]mesh.Option{mesh.WithLogger(log)}, p.buildOpts...)...)
	snap := &Snapshot{
		Generation: uuid.New(),
		LoadedAt:   time.Now(),
		ModTime:    mt,
		Layout:     layout,
		Meshes:     make([]*mesh.Mesh, len(p.Specs)),
	}
	for i, spec := range p.Specs {
		snap.Meshes[i] = builder.Build(layout, spec.Layer, spec.ZBounds, spec.Color)
	}

	p.mu.Lock()
	p.current = snap
	p.lastModTime = mt
	p.lastLoadFail = nil
	p.mu.Unlock()

	log.WithFields(logrus.Fields{
		"generation": snap.Generation,
		"structures": len(layout.Structures),
		"meshes":     len(snap.Meshes),
	}).Info("loaded part")
	return nil
}

// Snapshot returns the current state, or nil before the first successful
// load
func (p *Part) Snapshot() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// Loaded reports whether a load has succeeded
func (p *Part) Loaded() bool {
	return p.Snapshot() != nil
}

// LastError returns the error of the most recent load, nil if it succeeded
func (p *Part) LastError() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastLoadFail
}

// Meshes returns the meshes of the current snapshot
func (p *Part) Meshes() []*mesh.Mesh {
	if snap := p.Snapshot(); snap != nil {
		return snap.Meshes
	}
	return nil
}

// Bounds returns the xy extent of all meshes in scene coordinates
func (p *Part) Bounds() mesh.Bounds {
	b := mesh.EmptyBounds()
	for _, m := range p.Meshes() {
		b = b.Union(m.Bounds(&p.Transform))
	}
	return b
}

// Changed reports whether the file was modified since the last load
// attempt
func (p *Part) Changed() (bool, error) {
	mt, err := p.statModTime(p.Path)
	if err != nil {
		return false, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !mt.Equal(p.lastModTime), nil
}

// ReloadIfChanged loads the file again when its modification time moved.
// It reports whether a reload was attempted.
func (p *Part) ReloadIfChanged() (bool, error) {
	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	changed, err := p.Changed()
	if err != nil || !changed {
		return false, err
	}
	p.log.WithField("path", p.Path).Info("file changed, reloading")
	return true, p.load()
}

// Watch polls the file every interval and reloads it when it changes,
// until ctx is cancelled. onReload, if not nil, is called after every
// reload attempt with its result.
func (p *Part) Watch(ctx context.Context, interval time.Duration, onReload func(error)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			reloaded, err := p.ReloadIfChanged()
			if !reloaded {
				if err != nil {
					p.log.WithError(err).Debug("stat failed")
				}
				continue
			}
			if onReload != nil {
				onReload(err)
			}
		}
	}
}

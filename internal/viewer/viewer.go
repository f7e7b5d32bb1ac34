// Package viewer is the page side of the hand-off: it loads a model the way
// the page does for a file chosen locally or received through a share.
package viewer

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/handoff"
)

// ErrInvalidModel is returned when a file cannot be decoded as glTF.
var ErrInvalidModel = errors.New("failed to load model, please check the file format and contents")

// Model is a decoded glTF document.
type Model struct {
	Name     string
	Size     int
	Document *gltf.Document
}

// Summary describes the contents of a model.
type Summary struct {
	Generator  string
	Version    string
	Scenes     int
	Nodes      int
	Meshes     int
	Materials  int
	Animations int
}

// Summary counts the top level objects of m.
func (m *Model) Summary() Summary {
	d := m.Document
	return Summary{
		Generator:  d.Asset.Generator,
		Version:    d.Asset.Version,
		Scenes:     len(d.Scenes),
		Nodes:      len(d.Nodes),
		Meshes:     len(d.Meshes),
		Materials:  len(d.Materials),
		Animations: len(d.Animations),
	}
}

// Source yields the pending shared payload. Peek leaves it pending; Ack
// removes it once it was loaded or rejected.
type Source interface {
	Peek(ctx context.Context) (*handoff.Payload, bool, error)
	Ack(ctx context.Context, p *handoff.Payload) error
}

type slotSource struct {
	slot *handoff.Slot
}

func (s slotSource) Peek(context.Context) (*handoff.Payload, bool, error) {
	return s.slot.Peek()
}

func (s slotSource) Ack(_ context.Context, p *handoff.Payload) error {
	_, err := s.slot.Ack(p.Tag)
	return err
}

// FromSlot returns a Source reading the hand-off slot directly.
func FromSlot(slot *handoff.Slot) Source {
	return slotSource{slot: slot}
}

// Viewer holds the currently loaded model. A failed load leaves the current
// model in place.
type Viewer struct {
	m       sync.Mutex
	current *Model
}

// New returns a viewer with nothing loaded.
func New() *Viewer {
	return &Viewer{}
}

// Current returns the loaded model, or nil.
func (v *Viewer) Current() *Model {
	v.m.Lock()
	defer v.m.Unlock()
	return v.current
}

// Open decodes data and makes it the current model.
func (v *Viewer) Open(name string, data []byte) (*Model, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		log.Errorf("loading %v: %v", name, err)
		return nil, errors.Wrapf(ErrInvalidModel, "%v: %v", name, err)
	}

	return v.replace(&Model{Name: name, Size: len(data), Document: doc}), nil
}

// OpenFile loads a model from the local file system. Relative buffer and
// image references of .gltf files are resolved next to the file.
func (v *Viewer) OpenFile(path string) (*Model, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		log.Errorf("loading %v: %v", path, err)
		return nil, errors.Wrapf(ErrInvalidModel, "%v: %v", path, err)
	}

	var size int
	for _, b := range doc.Buffers {
		size += len(b.Data)
	}

	return v.replace(&Model{Name: filepath.Base(path), Size: size, Document: doc}), nil
}

func (v *Viewer) replace(m *Model) *Model {
	v.m.Lock()
	v.current = m
	v.m.Unlock()

	log.WithFields(log.Fields{"model": m.Name, "nodes": len(m.Document.Nodes)}).Info("model loaded")
	return m
}

// Startup loads the pending shared payload from src, if there is one, and
// acknowledges it afterwards. The payload is consumed even when it fails to
// load; if Startup does not get that far it stays pending for the next
// start.
func (v *Viewer) Startup(ctx context.Context, src Source) (*Model, bool, error) {
	p, ok, err := src.Peek(ctx)
	if err != nil {
		return nil, false, errors.Wrap(err, "read shared payload")
	}
	if !ok {
		return nil, false, nil
	}

	name := p.Filename
	if name == "" {
		name = filepath.Base(handoff.Key)
	}

	m, err := v.Open(name, p.Data)
	if aerr := src.Ack(ctx, p); aerr != nil {
		log.Warnf("acknowledging shared payload %v: %v", name, aerr)
	}
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

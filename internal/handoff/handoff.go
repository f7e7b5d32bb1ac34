// Package handoff holds the single pending file shared into the app until
// the page consumes it.
package handoff

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/cache"
)

const (
	// StoreName is the versionless store that outlives every generation.
	StoreName = "shared-files"
	// Key is the identity of the pending payload within the store.
	Key = "/shared.glb"
	// ContentType is the media type of binary glTF.
	ContentType = "model/gltf-binary"
)

// Payload is a shared file waiting to be loaded by the page.
type Payload struct {
	Filename string
	Data     []byte
	Received time.Time
	// Tag identifies this payload among successive shares. Ack only
	// removes the payload it names.
	Tag string
}

// Slot is the single-entry hand-off store. A Put before the previous payload
// was taken replaces it.
type Slot struct {
	store *cache.Store
}

// Open returns the slot backed by the hand-off store of storage.
func Open(storage *cache.Storage) (*Slot, error) {
	store, err := storage.Open(StoreName)
	if err != nil {
		return nil, err
	}
	return &Slot{store: store}, nil
}

// Put stores p as the pending payload.
func (s *Slot) Put(p Payload) error {
	h := http.Header{}
	h.Set("Content-Type", ContentType)
	h.Set("Content-Length", strconv.Itoa(len(p.Data)))
	if p.Filename != "" {
		h.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": p.Filename}))
	}

	received := p.Received
	if received.IsZero() {
		received = time.Now().UTC()
	}

	err := s.store.Put(&cache.Snapshot{
		Key:      Key,
		Status:   http.StatusOK,
		Header:   h,
		Body:     p.Data,
		Captured: received,
	})
	if err != nil {
		return errors.Wrap(err, "store shared payload")
	}

	log.WithFields(log.Fields{"file": p.Filename, "size": len(p.Data)}).Info("shared payload stored")
	return nil
}

// Peek returns the pending payload without consuming it.
func (s *Slot) Peek() (*Payload, bool, error) {
	snap, err := s.store.Match(Key)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return nil, false, nil
	case errors.Is(err, cache.ErrCorrupt):
		log.Warnf("discarding damaged shared payload: %v", err)
		if ferr := s.store.Forget(Key); ferr != nil {
			log.Warnf("forget shared payload: %v", ferr)
		}
		return nil, false, nil
	case err != nil:
		return nil, false, err
	}

	return &Payload{
		Filename: filename(snap.Header.Get("Content-Disposition")),
		Data:     snap.Body,
		Received: snap.Captured,
		Tag:      tag(snap),
	}, true, nil
}

// Ack removes the pending payload once the page has loaded it. A payload
// that was replaced by a newer share since tag was read stays pending. It
// reports whether the payload was removed.
func (s *Slot) Ack(tag string) (bool, error) {
	p, ok, err := s.Peek()
	if err != nil || !ok {
		return false, err
	}
	if p.Tag != tag {
		log.WithField("file", p.Filename).Info("newer shared payload pending, keeping it")
		return false, nil
	}

	if _, err := s.store.Delete(Key); err != nil {
		return false, errors.Wrap(err, "delete shared payload")
	}

	log.WithField("file", p.Filename).Info("shared payload consumed")
	return true, nil
}

// Take returns the pending payload and removes it in one step.
func (s *Slot) Take() (*Payload, bool, error) {
	p, ok, err := s.Peek()
	if err != nil || !ok {
		return nil, false, err
	}

	if _, err := s.Ack(p.Tag); err != nil {
		return nil, false, err
	}
	return p, true, nil
}

// tag derives the payload tag from its content and capture time, so a
// repeated share of the same file gets a new tag.
func tag(snap *cache.Snapshot) string {
	return cache.Digest(snap.Body)[:16] + "-" + strconv.FormatInt(snap.Captured.UnixNano(), 36)
}

func filename(disposition string) string {
	if disposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}
	return params["filename"]
}

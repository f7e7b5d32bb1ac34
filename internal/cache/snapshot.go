package cache

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Snapshot is the response captured for a request identity. The body is
// never modified after capture.
type Snapshot struct {
	Key      string
	Status   int
	Header   http.Header
	Body     []byte
	Captured time.Time
}

// NewSnapshot captures status and headers of resp together with body.
func NewSnapshot(key string, resp *http.Response, body []byte) *Snapshot {
	return &Snapshot{
		Key:      key,
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		Captured: time.Now().UTC(),
	}
}

// Response builds a fresh response for req that replays the snapshot.
func (s *Snapshot) Response(req *http.Request) *http.Response {
	h := s.Header.Clone()
	if h == nil {
		h = make(http.Header)
	}
	h.Set("Content-Length", strconv.Itoa(len(s.Body)))

	return &http.Response{
		Status:        strconv.Itoa(s.Status) + " " + http.StatusText(s.Status),
		StatusCode:    s.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          io.NopCloser(bytes.NewReader(s.Body)),
		ContentLength: int64(len(s.Body)),
		Request:       req,
	}
}

// ErrCorrupt is returned when a stored entry cannot be decoded or its body
// does not match the recorded digest.
var ErrCorrupt = errors.New("corrupt cache entry")

const entryVersion = 1

var entryMagic = []byte("GLBV")

type entryHeader struct {
	Key      string      `json:"key"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header,omitempty"`
	Captured time.Time   `json:"captured"`
	Size     int         `json:"size"`
	Digest   string      `json:"digest"`
}

var (
	allocEnc sync.Once
	allocDec sync.Once
	enc      *zstd.Encoder
	dec      *zstd.Decoder
)

func getZstdEncoder() *zstd.Encoder {
	allocEnc.Do(func() {
		opts := []zstd.EOption{
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			// Digest checks are done on the plain body.
			zstd.WithEncoderCRC(false),
		}

		var err error
		enc, err = zstd.NewWriter(nil, opts...)
		if err != nil {
			panic(err)
		}
	})
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	allocDec.Do(func() {
		opts := []zstd.DOption{
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
		}

		var err error
		dec, err = zstd.NewReader(nil, opts...)
		if err != nil {
			panic(err)
		}
	})
	return dec
}

// encodeEntry serialises s as magic, version byte, header length, JSON
// header and body, compressed with zstd.
func encodeEntry(s *Snapshot) ([]byte, error) {
	hdr, err := json.Marshal(entryHeader{
		Key:      s.Key,
		Status:   s.Status,
		Header:   s.Header,
		Captured: s.Captured,
		Size:     len(s.Body),
		Digest:   Digest(s.Body),
	})
	if err != nil {
		return nil, errors.Wrap(err, "json.Marshal")
	}

	plain := make([]byte, 0, len(entryMagic)+1+4+len(hdr)+len(s.Body))
	plain = append(plain, entryMagic...)
	plain = append(plain, entryVersion)
	plain = binary.BigEndian.AppendUint32(plain, uint32(len(hdr)))
	plain = append(plain, hdr...)
	plain = append(plain, s.Body...)

	return getZstdEncoder().EncodeAll(plain, nil), nil
}

func decodeEntry(buf []byte) (*Snapshot, error) {
	plain, err := getZstdDecoder().DecodeAll(buf, nil)
	if err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "decompress: %v", err)
	}

	hdr, body, err := splitEntry(plain)
	if err != nil {
		return nil, err
	}

	if len(body) != hdr.Size || Digest(body) != hdr.Digest {
		return nil, errors.Wrapf(ErrCorrupt, "digest mismatch for %v", hdr.Key)
	}

	return &Snapshot{
		Key:      hdr.Key,
		Status:   hdr.Status,
		Header:   hdr.Header,
		Body:     body,
		Captured: hdr.Captured,
	}, nil
}

func splitEntry(plain []byte) (entryHeader, []byte, error) {
	var hdr entryHeader

	prefix := len(entryMagic) + 1 + 4
	if len(plain) < prefix || !bytes.Equal(plain[:len(entryMagic)], entryMagic) {
		return hdr, nil, errors.Wrap(ErrCorrupt, "invalid header")
	}
	if v := plain[len(entryMagic)]; v != entryVersion {
		return hdr, nil, errors.Wrapf(ErrCorrupt, "unsupported entry version %d", v)
	}

	n := int(binary.BigEndian.Uint32(plain[len(entryMagic)+1 : prefix]))
	if len(plain) < prefix+n {
		return hdr, nil, errors.Wrap(ErrCorrupt, "truncated header")
	}

	if err := json.Unmarshal(plain[prefix:prefix+n], &hdr); err != nil {
		return hdr, nil, errors.Wrapf(ErrCorrupt, "header: %v", err)
	}

	return hdr, plain[prefix+n:], nil
}

package controller

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/skyline93/glbview/internal/handoff"
)

const (
	shareField     = "file"
	shareExtension = ".glb"
)

var errNoShareFile = errors.New("no shared .glb file in submission")

// isShare reports whether req is a share target submission: a multipart
// form POST to the application root document on the origin. Posts to other
// hosts in absolute form are ordinary requests.
func (c *Controller) isShare(req *http.Request) bool {
	if req.Method != http.MethodPost {
		return false
	}

	u, _ := c.target(req)
	if u.Scheme != c.opts.Origin.Scheme || !strings.EqualFold(u.Host, c.opts.Origin.Host) {
		return false
	}
	if u.Path != c.opts.Root && u.Path != strings.TrimSuffix(c.opts.Root, "/") {
		return false
	}

	mt, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// handleShare stores the submitted file in the hand-off slot and redirects
// to the application root. Submissions without a usable file are ignored;
// the share flow always sees the redirect.
func (c *Controller) handleShare(req *http.Request) *http.Response {
	defer req.Body.Close()

	p, err := c.readShare(req)
	switch {
	case err == nil:
		if err := c.slot.Put(*p); err != nil {
			log.Warnf("share: %v", err)
		}
	case errors.Is(err, errNoShareFile):
		log.Info("share: submission carried no .glb file")
	default:
		log.Warnf("share: ignoring submission: %v", err)
	}

	return redirect(req, c.opts.Root)
}

func (c *Controller) readShare(req *http.Request) (*handoff.Payload, error) {
	mr, err := req.MultipartReader()
	if err != nil {
		return nil, errors.Wrap(err, "multipart")
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoShareFile
		}
		if err != nil {
			return nil, errors.Wrap(err, "next part")
		}

		name := part.FileName()
		if part.FormName() != shareField || !strings.EqualFold(path.Ext(name), shareExtension) {
			_ = part.Close()
			continue
		}

		data, err := io.ReadAll(io.LimitReader(part, c.opts.MaxShareBytes+1))
		_ = part.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "read %v", name)
		}
		if int64(len(data)) > c.opts.MaxShareBytes {
			return nil, errors.Errorf("%v exceeds %d bytes", name, c.opts.MaxShareBytes)
		}

		return &handoff.Payload{Filename: name, Data: data}, nil
	}
}

func redirect(req *http.Request, location string) *http.Response {
	resp := textResponse(req, http.StatusSeeOther)
	resp.Header.Set("Location", location)
	return resp
}

package upload

import (
	"io"
	"net/http"
	"os"

	"github.com/orchestra-dev/orchestra/internal/config"
	"github.com/orchestra-dev/orchestra/pkg/api"
)

// Receiver writes an uploaded blueprint payload to a scratch file under the
// shared file-server root. The caller guarantees removal of the returned
// file on every exit path
type Receiver struct {
	root string
}

// NewReceiver creates a receiver rooted at the configured file area
func NewReceiver(cfg *config.Config) *Receiver {
	return &Receiver{root: cfg.FileServerRoot}
}

// Receive streams the request body to a uniquely named temp file and
// returns its path. Chunked transfers are decoded incrementally; a buffered
// request with an empty body fails with BadParameters
func (r *Receiver) Receive(req *http.Request) (string, error) {
	if !isStreamed(req) && req.ContentLength == 0 {
		return "", api.BadParameters(
			"missing application archive in request body")
	}

	f, err := os.CreateTemp(r.root, "upload-*.tar.gz")
	if err != nil {
		return "", err
	}

	written, err := io.Copy(f, req.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && written == 0 {
		err = api.BadParameters(
			"missing application archive in request body")
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func isStreamed(req *http.Request) bool {
	for _, enc := range req.TransferEncoding {
		if enc == "chunked" {
			return true
		}
	}
	return req.ContentLength < 0
}

// Package instance detects a running copy of the same sabnzbd release and
// hands it the work of a second launch.
package instance

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SunSeosahai/sabnzbd/log"
)

// Timeouts
const (
	ProbeTimeout  = 3 * time.Second
	UploadTimeout = 60 * time.Second
)

// maximum size of a version answer
const maxVersionSize = 256

// Coordinator is the Single-Instance Coordinator.
type Coordinator struct {
	Version string
	APIKey  string
	Browser Browser
	Log     *log.Logger

	// Probe is used for the version request, Upload for sending files.
	Probe  *http.Client
	Upload *http.Client

	// OnPeer, if set, is called when a peer of the same release is found.
	OnPeer func(url string)
}

// New returns a Coordinator for version with the default clients.
// Peers use self-signed certificates, so those are accepted.
func New(version string) *Coordinator {
	transport := &http.Transport{
		Proxy:           nil,
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	return &Coordinator{
		Version: version,
		Browser: SystemBrowser{},
		Probe:   &http.Client{Timeout: ProbeTimeout, Transport: transport},
		Upload:  &http.Client{Timeout: UploadTimeout, Transport: transport},
	}
}

// ProbeAndHandle asks base (scheme://host:port/) for its version. When it is
// this release, uploads are sent to it, or the browser is pointed at it when
// there are none, and true is returned. Every failure means "no peer".
func (c *Coordinator) ProbeAndHandle(ctx context.Context, base string, uploads []string) bool {
	l := c.logger()

	version, err := c.PeerVersion(ctx, base)
	if err != nil {
		l.DEBUG("No running instance", "url", base, "err", err)
		return false
	}
	if version != c.Version {
		l.DEBUG("Port used by another program or release", "url", base, "version", version)
		return false
	}

	if c.OnPeer != nil {
		c.OnPeer(base)
	}

	if len(uploads) > 0 {
		for _, name := range uploads {
			if err := c.UploadFile(ctx, base, name); err != nil {
				l.WARN("Cannot pass file to running instance", "file", name, "err", err)
				continue
			}
			l.INFO("Passed file to running instance", "file", name)
		}
		return true
	}

	if c.Browser != nil {
		if err := c.Browser.Open(base); err != nil {
			l.WARN("Cannot launch the browser", "err", err)
		}
	}
	return true
}

// PeerVersion fetches base+"api?mode=version" and returns the trimmed body.
func (c *Coordinator) PeerVersion(ctx context.Context, base string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"api?mode=version", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.probeClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVersionSize+1))
	if err != nil {
		return "", err
	}
	if len(body) > maxVersionSize {
		return "", fmt.Errorf("version answer too long")
	}
	return strings.TrimSpace(string(body)), nil
}

// UploadFile posts one file to the addfile API of the peer at base.
func (c *Coordinator) UploadFile(ctx context.Context, base, name string) error {
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("name", filepath.Base(name))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	q := url.Values{"mode": {"addfile"}}
	if c.APIKey != "" {
		q.Set("apikey", c.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"api?"+q.Encode(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.uploadClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload refused: %s", resp.Status)
	}
	return nil
}

func (c *Coordinator) probeClient() *http.Client {
	if c.Probe != nil {
		return c.Probe
	}
	return &http.Client{Timeout: ProbeTimeout}
}

func (c *Coordinator) uploadClient() *http.Client {
	if c.Upload != nil {
		return c.Upload
	}
	return &http.Client{Timeout: UploadTimeout}
}

func (c *Coordinator) logger() *log.Logger {
	if c.Log != nil {
		return c.Log
	}
	return log.GetLogger("instance")
}

// Recognized upload extensions.
var uploadExts = []string{".nzb.gz", ".nzb", ".zip", ".rar"}

// IsUpload reports whether name has an upload extension.
func IsUpload(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range uploadExts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ExtractUploads splits the upload file names from the other arguments,
// keeping the order of both. The argument after an option for which
// takesValue is true is that option's value and never an upload.
// A nil takesValue treats every option as a switch.
func ExtractUploads(args []string, takesValue func(option string) bool) (rest, uploads []string) {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if strings.HasPrefix(a, "-") {
			rest = append(rest, a)
			if takesValue != nil && takesValue(a) && i+1 < len(args) {
				i++
				rest = append(rest, args[i])
			}
			continue
		}
		if IsUpload(a) {
			uploads = append(uploads, a)
			continue
		}
		rest = append(rest, a)
	}
	return rest, uploads
}

package chatadapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/tltguild/tlt-core/internal/apierr"
)

// downloadTimestamp formats a fixed reference time the way spec §4.2 names
// the path segment: YYYYMMDD_HHMMSS.
func downloadTimestamp(t time.Time) string {
	return t.UTC().Format("20060102_150405")
}

// localDownloadPath composes the deterministic on-disk path spec §4.2
// requires for photo/promotion uploads:
// data/<guild-id>/<event-id>/<user-id>/[promotion/]<timestamp>_<filename>.
func localDownloadPath(dataRoot, guildID, eventID, userID, filename string, promotion bool, at time.Time) string {
	name := fmt.Sprintf("%s_%s", downloadTimestamp(at), filename)
	if promotion {
		return filepath.Join(dataRoot, guildID, eventID, userID, "promotion", name)
	}
	return filepath.Join(dataRoot, guildID, eventID, userID, name)
}

// downloader fetches attachment binaries to the deterministic path before
// the CloudEvent carrying both the source URL and local path is emitted
// (spec §4.2).
type downloader struct {
	dataRoot string
	http     *http.Client
}

func newDownloader(dataRoot string) *downloader {
	return &downloader{dataRoot: dataRoot, http: &http.Client{Timeout: 30 * time.Second}}
}

// Download fetches att.URL and writes it to the deterministic path,
// returning that local path. A non-200 response or transport failure
// surfaces as an io-error; the caller aborts emission and notifies the user
// per spec §4.2 failure model.
func (d *downloader) Download(ctx context.Context, guildID, eventID, userID string, att Attachment, promotion bool, at time.Time) (string, error) {
	path := localDownloadPath(d.dataRoot, guildID, eventID, userID, att.Filename, promotion, at)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", apierr.Wrap(apierr.KindIO, "create download directory", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return "", apierr.Wrap(apierr.KindIO, "build download request", err)
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return "", apierr.Wrap(apierr.KindIO, "download attachment", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", apierr.Newf(apierr.KindIO, "download attachment: http status %d", resp.StatusCode)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", apierr.Wrap(apierr.KindIO, "create downloaded file", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", apierr.Wrap(apierr.KindIO, "write downloaded file", err)
	}
	return path, nil
}

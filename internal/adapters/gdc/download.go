package gdc

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gdclab/brcaloader/internal/domain/subtype"
	"github.com/gdclab/brcaloader/pkg/logger"
	"github.com/gdclab/brcaloader/pkg/metrics"
)

// Supplementary PAM50 file locations from the TCGA 2012 publication. The
// original NCI host now redirects to HTML, so the GDC mirrors come first.
const (
	subtypePrimaryURL  = "https://gdc.cancer.gov/files/public/file/BRCA_PAM50_Subtypes.txt"
	subtypeFallbackURL = "https://gdc.cancer.gov/files/public/file/BRCA.547.PAM50.SigClust.Subtypes.txt"

	// SubtypeFileName is the local name of the supplementary file.
	SubtypeFileName = "BRCA.547.PAM50.SigClust.Subtypes.txt"
)

// Transfer constants.
const (
	downloadChunkSize = 8192
	sniffSize         = 1024

	dirPermission  = 0750
	filePermission = 0600
)

// DownloadFile streams one data file from the /data endpoint to the data
// directory. An existing local file of the same name is trusted
// unconditionally and returned without any network traffic.
func (c *Client) DownloadFile(ctx context.Context, fileID, fileName string) (string, error) {
	path := filepath.Join(c.dataDir, fileName)
	if _, err := os.Stat(path); err == nil {
		c.log.Info(ctx, "file already exists, skipping download", logger.String("path", path))
		metrics.RecordDownloadSkipped()
		return path, nil
	}

	if _, err := uuid.Parse(fileID); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileID, fileID)
	}

	c.log.Info(ctx, "downloading file",
		logger.String("file_id", fileID),
		logger.String("file_name", fileName))

	if err := c.fetchToFile(ctx, c.baseURL+"/data/"+fileID, path); err != nil {
		return "", err
	}
	metrics.RecordDownloadCompleted()
	return path, nil
}

// DownloadSubtypeFile retrieves the supplementary PAM50 annotation file.
//
// An existing local copy short-circuits unless its leading bytes sniff as
// HTML, in which case it is re-downloaded. The primary URL is tried first;
// a response whose content-type indicates markup means the endpoint served
// an error or landing page, and the fallback URL is attempted exactly once.
// After writing, the payload's leading bytes are verified again so a
// corrupted download is never silently persisted as data.
func (c *Client) DownloadSubtypeFile(ctx context.Context) (string, error) {
	path := filepath.Join(c.dataDir, SubtypeFileName)

	if existing, err := os.ReadFile(path); err == nil {
		if !subtype.IsHTML(head(existing)) {
			c.log.Info(ctx, "subtype file already exists", logger.String("path", path))
			metrics.RecordDownloadSkipped()
			return path, nil
		}
		c.log.Warn(ctx, "existing subtype file looks like HTML, re-downloading",
			logger.String("path", path))
	}

	c.log.Info(ctx, "downloading PAM50 subtype annotations",
		logger.String("url", c.subtypePrimaryURL))

	resp, err := c.get(ctx, c.subtypePrimaryURL, c.downloadTimeout)
	if err != nil {
		return "", err
	}

	if isHTMLContentType(resp.Header.Get("Content-Type")) {
		resp.Body.Close()
		metrics.RecordHTMLPayload()
		if c.subtypeFallbackURL == "" {
			return "", fmt.Errorf("%w: %s served HTML", ErrHTMLPayload, c.subtypePrimaryURL)
		}
		c.log.Warn(ctx, "received HTML instead of data, trying fallback URL",
			logger.String("url", c.subtypeFallbackURL))
		resp, err = c.get(ctx, c.subtypeFallbackURL, c.downloadTimeout)
		if err != nil {
			return "", err
		}
		if isHTMLContentType(resp.Header.Get("Content-Type")) {
			resp.Body.Close()
			metrics.RecordHTMLPayload()
			return "", fmt.Errorf("%w: both publication URLs served HTML", ErrHTMLPayload)
		}
	}

	if err := c.writeBody(resp, path); err != nil {
		return "", err
	}

	// Second defense: verify the persisted payload is not an HTML page.
	written, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("verify download: %w", err)
	}
	if subtype.IsHTML(head(written)) {
		metrics.RecordHTMLPayload()
		return "", fmt.Errorf("%w: %s (the URL may have changed)", ErrHTMLPayload, path)
	}

	metrics.RecordDownloadCompleted()
	c.log.Info(ctx, "downloaded subtype annotations", logger.String("path", path))
	return path, nil
}

// get issues a single download GET with a request-scoped timeout.
func (c *Client) get(ctx context.Context, u string, timeout time.Duration) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: create request: %w", ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: HTTP %d from %s", ErrRequestFailed, resp.StatusCode, u)
	}

	// Tie the cancel to body close so the timeout covers the streamed read.
	resp.Body = &cancelReadCloser{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// fetchToFile downloads u into path via get/writeBody.
func (c *Client) fetchToFile(ctx context.Context, u, path string) error {
	resp, err := c.get(ctx, u, c.downloadTimeout)
	if err != nil {
		return err
	}
	return c.writeBody(resp, path)
}

// writeBody streams a response body to path in fixed-size chunks.
func (c *Client) writeBody(resp *http.Response, path string) error {
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), dirPermission); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, downloadChunkSize)
	n, err := io.CopyBuffer(f, resp.Body, buf)
	metrics.RecordDownloadBytes(n)
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// isHTMLContentType reports whether a content-type header indicates markup.
func isHTMLContentType(ct string) bool {
	return strings.Contains(strings.ToLower(ct), "html")
}

// head returns the first sniffSize bytes of data.
func head(data []byte) []byte {
	if len(data) > sniffSize {
		return data[:sniffSize]
	}
	return data
}

// cancelReadCloser invokes cancel when the body is closed.
type cancelReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelReadCloser) Close() error {
	c.cancel()
	return c.ReadCloser.Close()
}

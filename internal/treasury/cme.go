package treasury

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/google/renameio/v2"
)

// ErrNoUpdateDate is returned when the CME page does not show a TCF update date.
var ErrNoUpdateDate = errors.New("tcf update date not found")

const userAgent = "Mozilla/5.0"

var updatedPattern = regexp.MustCompile(`Updated U\.S\. Treasury Conversion Factors\s*-\s*(\d{1,2} \w+ \d{4})`)

// CMEClient downloads the Treasury conversion factor workbook.
type CMEClient struct {
	pageURL    string
	fileURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewCMEClient creates a client for the conversion factor page and file.
func NewCMEClient(pageURL, fileURL string, opts ...Option) *CMEClient {
	o := newOptions(opts)
	return &CMEClient{
		pageURL:    pageURL,
		fileURL:    fileURL,
		httpClient: o.httpClient,
		logger:     o.logger,
	}
}

// FetchTCFDate returns the publication date shown on the conversion factor page.
func (c *CMEClient) FetchTCFDate(ctx context.Context) (time.Time, error) {
	body, err := c.fetch(ctx, c.pageURL)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch tcf page: %w", err)
	}
	defer body.Close()

	html, err := io.ReadAll(body)
	if err != nil {
		return time.Time{}, fmt.Errorf("read tcf page: %w", err)
	}
	return ParseUpdateDate(string(html))
}

// ParseUpdateDate extracts the "Updated U.S. Treasury Conversion Factors - 14 March 2025" date.
func ParseUpdateDate(html string) (time.Time, error) {
	m := updatedPattern.FindStringSubmatch(html)
	if m == nil {
		return time.Time{}, ErrNoUpdateDate
	}
	t, err := time.Parse("2 January 2006", m[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("parse tcf date %q: %w", m[1], err)
	}
	return t, nil
}

// DownloadTCF fetches the workbook published on date and atomically replaces path.
func (c *CMEClient) DownloadTCF(ctx context.Context, date time.Time, path string) error {
	url := c.fileURL + "?lastUpdated-" + date.Format("2006-01-02")
	c.logger.Info("downloading tcf workbook", "url", url, "path", path)

	body, err := c.fetch(ctx, url)
	if err != nil {
		return fmt.Errorf("download tcf: %w", err)
	}
	defer body.Close()

	pending, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending tcf file: %w", err)
	}
	defer pending.Cleanup()

	if _, err := io.Copy(pending, body); err != nil {
		return fmt.Errorf("write tcf file: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("replace tcf file: %w", err)
	}
	return nil
}

// Refresh looks up the current publication date and downloads that workbook.
func (c *CMEClient) Refresh(ctx context.Context, path string) (time.Time, error) {
	date, err := c.FetchTCFDate(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if err := c.DownloadTCF(ctx, date, path); err != nil {
		return time.Time{}, err
	}
	return date, nil
}

func (c *CMEClient) fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

/*
Package bse locates announcements on the BSE disclosure portal and
downloads filing documents. The JSON announcement API is the primary
source; the portal's HTML announcement page is scraped as a fallback.
*/
package bse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/phuslu/log"

	"github.com/shanehull/concallscraper/internal/types"
)

const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	requestTimeout = 60 * time.Second
	apiDateFormat  = "20060102"
)

// ErrNotAvailable marks a document that could not be retrieved as a
// genuine PDF payload. The caller retries the candidate on a future run.
var ErrNotAvailable = errors.New("document not available")

// DateWindow is an inclusive calendar-date range for feed queries.
type DateWindow struct {
	From time.Time
	To   time.Time
}

// Client talks to the BSE announcement feed and file server.
type Client struct {
	httpClient *http.Client
	feedURL    string
	portalURL  string
	logger     *log.Logger
}

// NewClient creates a client for the given feed endpoints. A nil
// httpClient gets a default with a 60 second timeout.
func NewClient(feedURL, portalURL string, httpClient *http.Client, logger *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		httpClient: httpClient,
		feedURL:    feedURL,
		portalURL:  portalURL,
		logger:     logger,
	}
}

// feedResponse mirrors the announcement API payload. Only the fields the
// pipeline consumes are decoded.
type feedResponse struct {
	Table []struct {
		Headline   string `json:"NEWSSUB"`
		Attachment string `json:"ATTACHMENTNAME"`
		NewsDate   string `json:"NEWS_DT"`
	} `json:"Table"`
}

// FetchAnnouncements returns the announcement records for a scrip code,
// optionally restricted to an inclusive date window. Failures degrade to
// an empty slice with a logged diagnostic: a missed transcript is picked
// up on a later run inside the lookback window, but aborting the batch
// over one company is not acceptable.
func (c *Client) FetchAnnouncements(ctx context.Context, code string, window *DateWindow) []types.Announcement {
	anns, err := c.fetchFromAPI(ctx, code, window)
	if err != nil {
		c.logger.Warn().Err(err).Str("code", code).Msg("announcement API fetch failed, trying portal page")
	} else if len(anns) > 0 {
		return anns
	}

	anns, err = c.scrapePortalPage(ctx, code)
	if err != nil {
		c.logger.Warn().Err(err).Str("code", code).Msg("portal page scrape failed")
		return nil
	}
	return anns
}

func (c *Client) fetchFromAPI(ctx context.Context, code string, window *DateWindow) ([]types.Announcement, error) {
	params := url.Values{}
	params.Set("strScrip", code)
	params.Set("strCat", "-1")
	params.Set("strType", "C")
	params.Set("strSearch", "P")
	if window != nil {
		params.Set("strPrevDate", window.From.Format(apiDateFormat))
		params.Set("strToDate", window.To.Format(apiDateFormat))
	}

	reqURL := c.feedURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed for %s: %w", code, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-OK status code %d from feed", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("failed to parse feed JSON: %w", err)
	}

	anns := make([]types.Announcement, 0, len(feed.Table))
	for _, item := range feed.Table {
		anns = append(anns, types.Announcement{
			Headline:     strings.TrimSpace(item.Headline),
			AttachmentID: attachmentID(item.Attachment),
			AnnouncedAt:  item.NewsDate,
		})
	}
	return anns, nil
}

// attachmentID strips the .pdf suffix the feed appends to attachment
// names. An empty name stays empty; the classifier rejects those records.
func attachmentID(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSuffix(name, ".pdf")
}

// DownloadDocument retrieves the raw PDF bytes at docURL. The exchange
// returns HTML error pages with a 200 status for invalid attachment ids,
// so a success status alone is not enough: the declared content type must
// indicate a document payload or the result is ErrNotAvailable.
func (c *Client) DownloadDocument(ctx context.Context, docURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAvailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status code %d from %s", ErrNotAvailable, resp.StatusCode, docURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isDocumentContentType(contentType) {
		return nil, fmt.Errorf("%w: unexpected content type %q from %s", ErrNotAvailable, contentType, docURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read document body: %v", ErrNotAvailable, err)
	}
	return body, nil
}

func isDocumentContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "application/pdf") || strings.Contains(ct, "application/octet-stream")
}

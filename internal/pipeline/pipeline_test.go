package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/phuslu/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/concallscraper/internal/bse"
	"github.com/shanehull/concallscraper/internal/ledger"
	"github.com/shanehull/concallscraper/internal/types"
)

type fakeFeed struct {
	anns          map[string][]types.Announcement
	pdf           []byte
	downloadErr   error
	fetchCalls    int
	downloadCalls int
	downloadedURL string
}

func (f *fakeFeed) FetchAnnouncements(_ context.Context, code string, _ *bse.DateWindow) []types.Announcement {
	f.fetchCalls++
	return f.anns[code]
}

func (f *fakeFeed) DownloadDocument(_ context.Context, url string) ([]byte, error) {
	f.downloadCalls++
	f.downloadedURL = url
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.pdf, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Text(_ []byte) (string, error) {
	return f.text, f.err
}

type fakeSender struct {
	err       error
	sendCalls int
	lastTitle string
	lastFile  string
	lastBook  []byte
}

func (f *fakeSender) SendBook(title, filename string, book []byte) error {
	f.sendCalls++
	f.lastTitle = title
	f.lastFile = filename
	f.lastBook = book
	if f.err != nil {
		return f.err
	}
	return nil
}

const transcriptText = "Prepared remarks.\nRevenue of Rs. 100 crore.\nQuestion-and-Answer Session\nQ1: Outlook?"

func watchlist() []types.WatchlistEntry {
	return []types.WatchlistEntry{{Name: "Example Ltd", BSECode: "500123"}}
}

func transcriptFeed() *fakeFeed {
	return &fakeFeed{
		anns: map[string][]types.Announcement{
			"500123": {
				{Headline: "Board Meeting Intimation", AttachmentID: "x1"},
				{Headline: "Earnings Call Transcript Q2", AttachmentID: "abc-123", AnnouncedAt: "2024-05-02"},
			},
		},
		pdf: []byte("%PDF-1.4"),
	}
}

func newTestPipeline(t *testing.T, feed *fakeFeed, extractor *fakeExtractor, sender *fakeSender) (*Pipeline, *ledger.Ledger) {
	t.Helper()

	logger := &log.Logger{Writer: &log.IOWriter{Writer: io.Discard}}
	led, err := ledger.Open(filepath.Join(t.TempDir(), "delivered.json"), logger)
	require.NoError(t, err)

	return New(feed, extractor, sender, led, Options{
		FileServerBase: "https://files.example.com",
		Author:         "concallscraper",
		Logger:         logger,
	}), led
}

func TestRunDeliversNewTranscript(t *testing.T) {
	feed := transcriptFeed()
	sender := &fakeSender{}
	p, led := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	summary := p.Run(context.Background(), watchlist())

	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, feed.downloadCalls)
	assert.Equal(t, "https://files.example.com/abc-123.pdf", feed.downloadedURL)
	assert.Equal(t, 1, sender.sendCalls)
	assert.Equal(t, "Example Ltd - Earnings Call Transcript Q2", sender.lastTitle)
	assert.Equal(t, "Example Ltd.epub", sender.lastFile)
	assert.NotEmpty(t, sender.lastBook)
	assert.True(t, led.Contains("https://files.example.com/abc-123.pdf"), "delivery must be committed")
}

func TestRunIsIdempotent(t *testing.T) {
	feed := transcriptFeed()
	sender := &fakeSender{}
	p, _ := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	first := p.Run(context.Background(), watchlist())
	require.Equal(t, 1, first.Delivered)

	second := p.Run(context.Background(), watchlist())
	assert.Equal(t, 0, second.Delivered)
	assert.Equal(t, 1, second.Reasons[SkipAlreadyDelivered])
	assert.Equal(t, 1, feed.downloadCalls, "second run must not download again")
	assert.Equal(t, 1, sender.sendCalls, "second run must not send again")
}

func TestRunSkipsCommittedURLWithoutFetch(t *testing.T) {
	feed := transcriptFeed()
	sender := &fakeSender{}
	p, led := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	require.NoError(t, led.Commit("https://files.example.com/abc-123.pdf"))

	summary := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, summary.Reasons[SkipAlreadyDelivered])
	assert.Equal(t, 0, feed.downloadCalls)
	assert.Equal(t, 0, sender.sendCalls)
}

func TestRunSkipsWhenNoCandidate(t *testing.T) {
	feed := &fakeFeed{anns: map[string][]types.Announcement{
		"500123": {{Headline: "Dividend Declaration", AttachmentID: "x1"}},
	}}
	sender := &fakeSender{}
	p, _ := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	summary := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, summary.Reasons[SkipNoCandidate])
	assert.Equal(t, 0, feed.downloadCalls)
}

func TestRunFetchFailureIsRetriable(t *testing.T) {
	feed := transcriptFeed()
	feed.downloadErr = bse.ErrNotAvailable
	sender := &fakeSender{}
	p, led := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	summary := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, summary.Reasons[SkipFetchFailed])
	assert.Equal(t, 0, sender.sendCalls)
	assert.False(t, led.Contains("https://files.example.com/abc-123.pdf"), "failed fetch must not be committed")

	// The document becomes available on a later run.
	feed.downloadErr = nil
	retry := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, retry.Delivered)
	assert.True(t, led.Contains("https://files.example.com/abc-123.pdf"))
}

func TestRunEmptyTextIsNotCommitted(t *testing.T) {
	feed := transcriptFeed()
	sender := &fakeSender{}
	p, led := newTestPipeline(t, feed, &fakeExtractor{text: "   \n  "}, sender)

	summary := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, summary.Reasons[SkipEmptyText])
	assert.Equal(t, 0, sender.sendCalls)
	assert.Equal(t, 0, led.Len())
}

func TestRunExtractErrorIsNotCommitted(t *testing.T) {
	feed := transcriptFeed()
	sender := &fakeSender{}
	p, led := newTestPipeline(t, feed, &fakeExtractor{err: errors.New("corrupt xref table")}, sender)

	summary := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, summary.Reasons[SkipEmptyText])
	assert.Equal(t, 0, led.Len())
}

func TestRunSendFailureIsNotCommitted(t *testing.T) {
	feed := transcriptFeed()
	sender := &fakeSender{err: errors.New("smtp: connection refused")}
	p, led := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	summary := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, summary.Reasons[SkipSendFailed])
	assert.False(t, led.Contains("https://files.example.com/abc-123.pdf"), "failed send must not be committed")

	// Mail transport recovers; the candidate is retried and committed.
	sender.err = nil
	retry := p.Run(context.Background(), watchlist())
	assert.Equal(t, 1, retry.Delivered)
	assert.True(t, led.Contains("https://files.example.com/abc-123.pdf"))
}

func TestRunOneEntryFailureDoesNotHaltBatch(t *testing.T) {
	feed := &fakeFeed{
		anns: map[string][]types.Announcement{
			"500123": nil, // locator degraded to empty for this company
			"532456": {{Headline: "Earnings Call Transcript Q1", AttachmentID: "def-9"}},
		},
		pdf: []byte("%PDF-1.4"),
	}
	sender := &fakeSender{}
	p, _ := newTestPipeline(t, feed, &fakeExtractor{text: transcriptText}, sender)

	entries := []types.WatchlistEntry{
		{Name: "Broken Co", BSECode: "500123"},
		{Name: "Healthy Ltd", BSECode: "532456"},
	}

	summary := p.Run(context.Background(), entries)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, 1, summary.Reasons[SkipNoAnnouncements])
	assert.Equal(t, "Healthy Ltd - Earnings Call Transcript Q1", sender.lastTitle)
}

/*
Package pipeline drives the per-company delivery state machine:
locate, classify, check ledger, fetch, extract, segment, package, send,
commit. Every step failure is converted to a skip decision with an
explicit reason; nothing propagates past the per-entry boundary, so one
bad company or transient network blip never sacrifices the rest of the
batch.
*/
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/phuslu/log"
	"golang.org/x/time/rate"

	"github.com/shanehull/concallscraper/internal/bse"
	"github.com/shanehull/concallscraper/internal/classify"
	"github.com/shanehull/concallscraper/internal/epub"
	"github.com/shanehull/concallscraper/internal/ledger"
	"github.com/shanehull/concallscraper/internal/segment"
	"github.com/shanehull/concallscraper/internal/types"
)

// Feed locates announcements and retrieves filing documents.
type Feed interface {
	FetchAnnouncements(ctx context.Context, code string, window *bse.DateWindow) []types.Announcement
	DownloadDocument(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor converts document bytes to plain text.
type TextExtractor interface {
	Text(pdf []byte) (string, error)
}

// BookSender delivers a packaged e-book.
type BookSender interface {
	SendBook(title, filename string, book []byte) error
}

// SkipReason explains why an entry ended without a delivery.
type SkipReason string

const (
	SkipNoAnnouncements  SkipReason = "no_announcements"
	SkipNoCandidate      SkipReason = "no_candidate"
	SkipAlreadyDelivered SkipReason = "already_delivered"
	SkipFetchFailed      SkipReason = "fetch_failed"
	SkipEmptyText        SkipReason = "empty_text"
	SkipPackageFailed    SkipReason = "package_failed"
	SkipSendFailed       SkipReason = "send_failed"
)

// Summary aggregates per-entry outcomes for one run.
type Summary struct {
	Delivered int
	Skipped   int
	Reasons   map[SkipReason]int
}

// Options carries run tuning for the pipeline.
type Options struct {
	FileServerBase string
	LookbackDays   int
	SendDelay      time.Duration
	Author         string
	Logger         *log.Logger
}

// Pipeline processes watchlist entries sequentially, one entry fully
// carried through the state machine before the next begins.
type Pipeline struct {
	feed      Feed
	extractor TextExtractor
	sender    BookSender
	ledger    *ledger.Ledger
	opts      Options
	limiter   *rate.Limiter
}

// New wires the pipeline collaborators. The send limiter enforces a fixed
// pause between successful deliveries; skip paths never wait.
func New(feed Feed, extractor TextExtractor, sender BookSender, led *ledger.Ledger, opts Options) *Pipeline {
	limit := rate.Inf
	if opts.SendDelay > 0 {
		limit = rate.Every(opts.SendDelay)
	}
	return &Pipeline{
		feed:      feed,
		extractor: extractor,
		sender:    sender,
		ledger:    led,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
	}
}

// Run processes the watchlist in order and returns the outcome summary.
func (p *Pipeline) Run(ctx context.Context, watchlist []types.WatchlistEntry) Summary {
	summary := Summary{Reasons: make(map[SkipReason]int)}

	for _, entry := range watchlist {
		delivered, reason := p.processEntry(ctx, entry)
		if delivered {
			summary.Delivered++
			continue
		}
		summary.Skipped++
		summary.Reasons[reason]++
	}

	return summary
}

func (p *Pipeline) processEntry(ctx context.Context, entry types.WatchlistEntry) (bool, SkipReason) {
	logger := p.opts.Logger
	logger.Info().Str("company", entry.Name).Str("code", entry.BSECode).Msg("scanning for transcripts")

	anns := p.feed.FetchAnnouncements(ctx, entry.BSECode, p.window())
	if len(anns) == 0 {
		logger.Info().Str("company", entry.Name).Msg("no announcements in window")
		return false, SkipNoAnnouncements
	}

	candidate, ok := classify.FindTranscript(p.opts.FileServerBase, anns)
	if !ok {
		logger.Debug().Str("company", entry.Name).Int("scanned", len(anns)).Msg("no transcript among announcements")
		return false, SkipNoCandidate
	}

	if p.ledger.Contains(candidate.DocumentURL) {
		logger.Debug().Str("company", entry.Name).Str("url", candidate.DocumentURL).Msg("transcript already delivered")
		return false, SkipAlreadyDelivered
	}

	pdfBytes, err := p.feed.DownloadDocument(ctx, candidate.DocumentURL)
	if err != nil {
		logger.Warn().Err(err).Str("company", entry.Name).Str("url", candidate.DocumentURL).Msg("document fetch failed, will retry next run")
		return false, SkipFetchFailed
	}

	text, err := p.extractor.Text(pdfBytes)
	if err != nil {
		logger.Warn().Err(err).Str("company", entry.Name).Msg("text extraction failed, will retry next run")
		return false, SkipEmptyText
	}
	if strings.TrimSpace(text) == "" {
		logger.Warn().Str("company", entry.Name).Str("url", candidate.DocumentURL).Msg("document yielded no text, will retry next run")
		return false, SkipEmptyText
	}

	doc := segment.Segment(text)

	title := fmt.Sprintf("%s - %s", entry.Name, candidate.Title)
	book, err := epub.Build(epub.BookMeta{
		Title:       title,
		Author:      p.opts.Author,
		Identifier:  candidate.DocumentURL,
		AnnouncedAt: candidate.AnnouncedAt,
	}, doc)
	if err != nil {
		logger.Error().Err(err).Str("company", entry.Name).Msg("e-book packaging failed")
		return false, SkipPackageFailed
	}

	// The limiter spaces out submissions to stay inside the feed's
	// informal rate tolerance. Entries that skip never reach it.
	if err := p.limiter.Wait(ctx); err != nil {
		logger.Warn().Err(err).Str("company", entry.Name).Msg("send canceled")
		return false, SkipSendFailed
	}

	if err := p.sender.SendBook(title, bookFilename(entry.Name), book); err != nil {
		logger.Error().Err(err).Str("company", entry.Name).Msg("mail delivery failed, will retry next run")
		return false, SkipSendFailed
	}

	if err := p.ledger.Commit(candidate.DocumentURL); err != nil {
		// The book went out but the ledger write failed: the next run may
		// send a duplicate. Surface loudly rather than pretend it failed.
		logger.Error().Err(err).Str("company", entry.Name).Str("url", candidate.DocumentURL).Msg("ledger commit failed after send")
	}

	logger.Info().Str("company", entry.Name).Str("url", candidate.DocumentURL).Msg("transcript delivered")
	return true, ""
}

func (p *Pipeline) window() *bse.DateWindow {
	if p.opts.LookbackDays <= 0 {
		return nil
	}
	now := time.Now()
	return &bse.DateWindow{From: now.AddDate(0, 0, -p.opts.LookbackDays), To: now}
}

func bookFilename(company string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, company)
	return name + ".epub"
}

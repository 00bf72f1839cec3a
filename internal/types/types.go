package types

// WatchlistEntry is one company to monitor, loaded from config and
// immutable for the duration of a run.
type WatchlistEntry struct {
	Name    string `yaml:"name" validate:"required"`
	BSECode string `yaml:"bse_code" validate:"required,numeric"`
}

// Announcement is a single record from the exchange disclosure feed.
// AnnouncedAt is kept as the feed-local string since the portal formats
// it differently between the JSON API and the HTML page.
type Announcement struct {
	Headline     string
	AttachmentID string
	AnnouncedAt  string
}

// TranscriptCandidate is an announcement classified as an earnings-call
// transcript filing. DocumentURL is the canonical dedup key: it is built
// deterministically from the attachment id, so the same filing always
// yields the same URL.
type TranscriptCandidate struct {
	DocumentURL string
	Title       string
	AnnouncedAt string
}

// ExtractedDocument holds the segmented transcript text. Empty QAText and
// Highlights are valid degraded outputs, not errors.
type ExtractedDocument struct {
	ManagementText string
	QAText         string
	Highlights     []string
}

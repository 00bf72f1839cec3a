/*
Package classify identifies earnings-call transcript filings among exchange
announcement records. Pure functions, no I/O.
*/
package classify

import (
	"fmt"
	"strings"

	"github.com/shanehull/concallscraper/internal/types"
)

// A headline is classified as a transcript when it contains the transcript
// token together with at least one call-context token. "Transcript" alone
// overmatches non-call disclosures such as "trading plan transcript of
// approval", so the conjunction is required.
var (
	transcriptTokens  = []string{"transcript"}
	callContextTokens = []string{"earnings", "call", "conference"}
)

// IsTranscriptHeadline reports whether a headline describes an
// earnings-call transcript filing.
func IsTranscriptHeadline(headline string) bool {
	lower := strings.ToLower(headline)

	return containsAny(lower, transcriptTokens) && containsAny(lower, callContextTokens)
}

func containsAny(s string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(s, tok) {
			return true
		}
	}
	return false
}

// DocumentURL builds the canonical download URL for an attachment id.
// The template is fixed so the same filing always maps to the same URL,
// which the dedup ledger relies on.
func DocumentURL(fileServerBase, attachmentID string) string {
	return fmt.Sprintf("%s/%s.pdf", strings.TrimRight(fileServerBase, "/"), attachmentID)
}

// FindTranscript scans announcements in feed order and returns the first
// record classified as a transcript. Remaining records are not inspected;
// a second transcript in the same window is picked up on a later run.
// A matching record with no attachment id is not a usable transcript and
// yields no candidate.
func FindTranscript(fileServerBase string, anns []types.Announcement) (types.TranscriptCandidate, bool) {
	for _, ann := range anns {
		if !IsTranscriptHeadline(ann.Headline) {
			continue
		}
		if strings.TrimSpace(ann.AttachmentID) == "" {
			return types.TranscriptCandidate{}, false
		}
		return types.TranscriptCandidate{
			DocumentURL: DocumentURL(fileServerBase, ann.AttachmentID),
			Title:       ann.Headline,
			AnnouncedAt: ann.AnnouncedAt,
		}, true
	}
	return types.TranscriptCandidate{}, false
}

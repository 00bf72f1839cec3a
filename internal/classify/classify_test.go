package classify

import (
	"testing"

	"github.com/shanehull/concallscraper/internal/types"
)

func TestIsTranscriptHeadline(t *testing.T) {
	tests := []struct {
		name     string
		headline string
		want     bool
	}{
		{
			name:     "earnings call transcript matches",
			headline: "Q2 FY24 Earnings Call Transcript",
			want:     true,
		},
		{
			name:     "conference call transcript matches",
			headline: "Transcript of Analysts/Institutional Investor Conference Call",
			want:     true,
		},
		{
			name:     "transcript without call context does not match",
			headline: "Transcript of Trading Window Closure",
			want:     false,
		},
		{
			name:     "earnings without transcript does not match",
			headline: "Earnings Presentation Q2 FY24",
			want:     false,
		},
		{
			name:     "case insensitive",
			headline: "EARNINGS CONFERENCE CALL TRANSCRIPT",
			want:     true,
		},
		{
			name:     "empty headline does not match",
			headline: "",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTranscriptHeadline(tt.headline); got != tt.want {
				t.Errorf("IsTranscriptHeadline(%q) = %v, want %v", tt.headline, got, tt.want)
			}
		})
	}
}

func TestDocumentURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		id   string
		want string
	}{
		{
			name: "plain base",
			base: "https://files.example.com/attach",
			id:   "abc123",
			want: "https://files.example.com/attach/abc123.pdf",
		},
		{
			name: "trailing slash on base",
			base: "https://files.example.com/attach/",
			id:   "abc123",
			want: "https://files.example.com/attach/abc123.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DocumentURL(tt.base, tt.id); got != tt.want {
				t.Errorf("DocumentURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindTranscript(t *testing.T) {
	base := "https://files.example.com"

	t.Run("first match in feed order wins", func(t *testing.T) {
		anns := []types.Announcement{
			{Headline: "Board Meeting Intimation", AttachmentID: "a1"},
			{Headline: "Earnings Call Transcript Q1", AttachmentID: "a2", AnnouncedAt: "2024-05-01"},
			{Headline: "Earnings Call Transcript Q4", AttachmentID: "a3"},
		}

		candidate, ok := FindTranscript(base, anns)
		if !ok {
			t.Fatal("FindTranscript() found no candidate")
		}
		if candidate.DocumentURL != "https://files.example.com/a2.pdf" {
			t.Errorf("DocumentURL = %q, want first matching record's URL", candidate.DocumentURL)
		}
		if candidate.Title != "Earnings Call Transcript Q1" {
			t.Errorf("Title = %q", candidate.Title)
		}
		if candidate.AnnouncedAt != "2024-05-01" {
			t.Errorf("AnnouncedAt = %q", candidate.AnnouncedAt)
		}
	})

	t.Run("no matching record yields no candidate", func(t *testing.T) {
		anns := []types.Announcement{
			{Headline: "Dividend Declaration", AttachmentID: "a1"},
			{Headline: "Transcript of Trading Window Closure", AttachmentID: "a2"},
		}

		if _, ok := FindTranscript(base, anns); ok {
			t.Error("FindTranscript() returned a candidate for non-transcript announcements")
		}
	})

	t.Run("matching record with empty attachment id yields no candidate", func(t *testing.T) {
		anns := []types.Announcement{
			{Headline: "Earnings Call Transcript Q1", AttachmentID: "  "},
		}

		if _, ok := FindTranscript(base, anns); ok {
			t.Error("FindTranscript() returned a candidate with no attachment id")
		}
	})

	t.Run("empty feed yields no candidate", func(t *testing.T) {
		if _, ok := FindTranscript(base, nil); ok {
			t.Error("FindTranscript() returned a candidate for an empty feed")
		}
	})
}

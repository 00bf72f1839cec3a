package bse

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/shanehull/concallscraper/internal/types"
)

// scrapePortalPage parses the portal's announcement page for a scrip code
// and collects one record per attachment link. The page carries no
// reliable timestamp per row, so AnnouncedAt stays empty on this path.
func (c *Client) scrapePortalPage(ctx context.Context, code string) ([]types.Announcement, error) {
	pageURL := c.portalURL + "?scripcode=" + code

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create portal request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch portal page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-OK status code %d from %s", resp.StatusCode, pageURL)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", pageURL, err)
	}

	return collectAttachmentLinks(doc), nil
}

// collectAttachmentLinks walks the document tree and turns every anchor
// pointing at a PDF attachment into an announcement record. The anchor
// text is the headline; the attachment id is the link's file name.
func collectAttachmentLinks(doc *html.Node) []types.Announcement {
	var anns []types.Announcement

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			href := anchorHref(n)
			if strings.HasSuffix(strings.ToLower(href), ".pdf") {
				headline := strings.TrimSpace(extractText(n))
				if headline != "" {
					anns = append(anns, types.Announcement{
						Headline:     headline,
						AttachmentID: attachmentID(path.Base(href)),
					})
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return anns
}

func anchorHref(n *html.Node) string {
	for _, attr := range n.Attr {
		if attr.Key == "href" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}

func extractText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var sb strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		sb.WriteString(extractText(child))
	}
	return sb.String()
}

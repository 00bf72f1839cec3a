/*
Package epub packages a segmented transcript into an EPUB e-book. EPUB is
a plain zip container with XHTML content, so the writer is built directly
on archive/zip; the only structural constraint is that the mimetype entry
comes first and is stored uncompressed.
*/
package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shanehull/concallscraper/internal/types"
)

// BookMeta carries the e-book metadata. Identifier should be the
// document URL so the same filing always produces the same book identity.
type BookMeta struct {
	Title       string
	Author      string
	Language    string
	Identifier  string
	AnnouncedAt string
}

const (
	mimetypeEntry    = "application/epub+zip"
	containerXML     = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`
	packageTemplate  = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="book-id">{{.Identifier}}</dc:identifier>
    <dc:title>{{.Title}}</dc:title>
    <dc:language>{{.Language}}</dc:language>
    <dc:creator>{{.Author}}</dc:creator>
    <meta property="dcterms:modified">{{.Modified}}</meta>
  </metadata>
  <manifest>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="chapter" href="chapter.xhtml" media-type="application/xhtml+xml"/>
  </manifest>
  <spine>
    <itemref idref="chapter"/>
  </spine>
</package>
`
	navTemplate      = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>{{.Title}}</title></head>
<body>
  <nav epub:type="toc">
    <ol><li><a href="chapter.xhtml">Transcript</a></li></ol>
  </nav>
</body>
</html>
`
	chapterTemplate  = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
<head><title>{{.Title}}</title></head>
<body>
  <h1>{{.Title}}</h1>
  {{if .AnnouncedAt}}<p><em>Announced: {{.AnnouncedAt}}</em></p>{{end}}
  {{if .Highlights}}<h2>Highlights</h2>
  <ul>
  {{range .Highlights}}<li>{{.}}</li>
  {{end}}</ul>{{end}}
  <h2>Management Commentary</h2>
  <p>{{breakLines .ManagementText}}</p>
  {{if .QAText}}<h2>Q&amp;A Session</h2>
  <p>{{breakLines .QAText}}</p>{{end}}
</body>
</html>
`
)

var chapterTmpl = template.Must(template.New("chapter").Funcs(template.FuncMap{
	"breakLines": breakLines,
}).Parse(chapterTemplate))

var packageTmpl = template.Must(template.New("package").Parse(packageTemplate))

var navTmpl = template.Must(template.New("nav").Parse(navTemplate))

// breakLines escapes text and renders newline characters as line breaks.
func breakLines(s string) template.HTML {
	escaped := template.HTMLEscapeString(s)
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br/>\n"))
}

type chapterData struct {
	Title          string
	AnnouncedAt    string
	Highlights     []string
	ManagementText string
	QAText         string
}

type packageData struct {
	Title      string
	Author     string
	Language   string
	Identifier string
	Modified   string
}

// Build renders the book as EPUB bytes. Content section order: announced
// date, highlights, management commentary, Q&A.
func Build(meta BookMeta, doc types.ExtractedDocument) ([]byte, error) {
	language := meta.Language
	if language == "" {
		language = "en"
	}

	var chapter bytes.Buffer
	err := chapterTmpl.Execute(&chapter, chapterData{
		Title:          meta.Title,
		AnnouncedAt:    meta.AnnouncedAt,
		Highlights:     doc.Highlights,
		ManagementText: doc.ManagementText,
		QAText:         doc.QAText,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render chapter: %w", err)
	}

	var pkg bytes.Buffer
	err = packageTmpl.Execute(&pkg, packageData{
		Title:      meta.Title,
		Author:     meta.Author,
		Language:   language,
		Identifier: meta.Identifier,
		Modified:   time.Now().UTC().Format("2006-01-02T15:04:05Z"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render package document: %w", err)
	}

	var nav bytes.Buffer
	if err := navTmpl.Execute(&nav, meta); err != nil {
		return nil, fmt.Errorf("failed to render nav document: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	// The mimetype entry must be first and stored without compression so
	// readers can sniff the container type from the raw bytes.
	mimetypeWriter, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "mimetype",
		Method: zip.Store,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := mimetypeWriter.Write([]byte(mimetypeEntry)); err != nil {
		return nil, fmt.Errorf("failed to write mimetype entry: %w", err)
	}

	entries := []struct {
		name    string
		content []byte
	}{
		{"META-INF/container.xml", []byte(containerXML)},
		{"OEBPS/content.opf", pkg.Bytes()},
		{"OEBPS/nav.xhtml", nav.Bytes()},
		{"OEBPS/chapter.xhtml", chapter.Bytes()},
	}
	for _, entry := range entries {
		w, err := zw.Create(entry.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", entry.name, err)
		}
		if _, err := w.Write(entry.content); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", entry.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize epub container: %w", err)
	}
	return buf.Bytes(), nil
}

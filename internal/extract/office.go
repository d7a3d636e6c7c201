package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const (
	contentTypesPath    = "[Content_Types].xml"
	docxDefaultPath     = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix     = "ppt/slides/slide"
	openDocumentContent = "content.xml"
)

var (
	// <w:t> runs carry attributes in real documents, so match any.
	wordText  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	slideText = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

	odfParagraph = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan      = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfHeading   = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)

	partNameFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameLast  = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

func openZip(content []byte, kind string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", kind, err)
	}
	return zr, nil
}

func readPart(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// appendMatches writes the trimmed first group of every match, space separated.
func appendMatches(b *strings.Builder, xml string, patterns ...*regexp.Regexp) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(xml, -1) {
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.TrimSpace(m[1]))
		}
	}
}

// docxMainPath reads the main document part name from [Content_Types].xml,
// falling back to word/document.xml.
func docxMainPath(zr *zip.Reader) string {
	f := findPart(zr, contentTypesPath)
	if f == nil {
		return docxDefaultPath
	}
	types, err := readPart(f)
	if err != nil {
		return docxDefaultPath
	}
	for _, re := range []*regexp.Regexp{partNameFirst, partNameLast} {
		if m := re.FindStringSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return docxDefaultPath
}

func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	name := docxMainPath(zr)
	f := findPart(zr, name)
	if f == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", name)
	}
	xml, err := readPart(f)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: read %s: %w", name, err)
	}
	var b strings.Builder
	appendMatches(&b, xml, wordText)
	return strings.TrimSpace(b.String()), nil
}

func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		xml, err := readPart(f)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: read %s: %w", f.Name, err)
		}
		appendMatches(&b, xml, slideText)
	}
	return strings.TrimSpace(b.String()), nil
}

// extractOpenDocument covers .odp and .ods, whose text lives in content.xml.
func extractOpenDocument(content []byte) (string, error) {
	zr, err := openZip(content, "OpenDocument")
	if err != nil {
		return "", err
	}
	f := findPart(zr, openDocumentContent)
	if f == nil {
		return "", fmt.Errorf("extract OpenDocument: %s not found", openDocumentContent)
	}
	xml, err := readPart(f)
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: read %s: %w", openDocumentContent, err)
	}
	var b strings.Builder
	appendMatches(&b, xml, odfParagraph, odfSpan, odfHeading)
	return strings.TrimSpace(b.String()), nil
}

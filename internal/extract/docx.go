package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wpBlock matches one paragraph: the self-closing <w:p/> form (an empty
// paragraph still contributes a line) or <w:p ...>...</w:p>. The
// self-closing alternative comes first so an attributed <w:p .../> is not
// mistaken for an open tag. `(?:\s[^>]*)?` keeps it from matching <w:pPr>
// and friends.
var wpBlock = regexp.MustCompile(`(?s)<w:p(?:\s[^>]*)?/>|<w:p(?:\s[^>]*)?>(.*?)</w:p>`)

// wtTag matches <w:t>text</w:t> or <w:t xml:space="preserve">text</w:t> (and any other attributes).
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	content, err := zipPart(zr, contentTypesPath)
	if err != nil || content == nil {
		return ""
	}
	s := string(content)
	// Try both attribute orders
	if matches := partNameRe.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	if matches := partNameRe2.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimPrefix(matches[1], "/")
	}
	return ""
}

// docxExtractor extracts text from Word documents. DOCX is a ZIP containing
// word/document.xml (OOXML). Paragraphs (<w:p>) are emitted in document
// order, one line each, with the runs (<w:t>) of a paragraph concatenated.
// We do not use lu4p/cat because its regex only matches <w:p>(.*)</w:p>
// without attributes, so real-world docs (e.g. <w:p w:rsidR="...">) yield empty.
type docxExtractor struct{}

func (docxExtractor) capability() string { return "ooxml wordprocessing parser" }
func (docxExtractor) available() bool    { return true }

func (docxExtractor) extract(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	// Find main document path from [Content_Types].xml, fall back to default
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := zipPart(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}

	blocks := wpBlock.FindAllStringSubmatch(string(docXML), -1)
	lines := make([]string, 0, len(blocks))
	for _, block := range blocks {
		var b strings.Builder
		for _, run := range wtTag.FindAllStringSubmatch(block[1], -1) {
			b.WriteString(unescapeXML(run[1]))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n"), nil
}

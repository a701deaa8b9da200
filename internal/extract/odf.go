package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

// odfContentPath is the path to the main content inside an OpenDocument zip
// (.odt, .ods, and .odp all use the same layout).
const odfContentPath = "content.xml"

// odfParagraph matches one text:p element. text:p is the paragraph-type
// text node shared by all OpenDocument flavors; spans and links live
// inside it and are handled by stripping the inner markup. The
// self-closing alternative comes first so an attributed <text:p .../> is
// not mistaken for an open tag.
var odfParagraph = regexp.MustCompile(`(?s)<text:p(?:\s[^>]*)?/>|<text:p(?:\s[^>]*)?>(.*?)</text:p>`)

// innerTag strips any nested markup (spans, links, tabs) inside a paragraph.
var innerTag = regexp.MustCompile(`<[^>]*>`)

// odfExtractor extracts text from OpenDocument files. The document is a ZIP
// containing content.xml; every paragraph-type text node is emitted in
// document order, one line each.
type odfExtractor struct{}

func (odfExtractor) capability() string { return "opendocument parser" }
func (odfExtractor) available() bool    { return true }

func (odfExtractor) extract(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract ODF: not a zip: %w", err)
	}
	contentXML, err := zipPart(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract ODF: %w", err)
	}
	if contentXML == nil {
		return "", fmt.Errorf("extract ODF: %s not found", odfContentPath)
	}

	blocks := odfParagraph.FindAllStringSubmatch(string(contentXML), -1)
	lines := make([]string, 0, len(blocks))
	for _, block := range blocks {
		lines = append(lines, unescapeXML(innerTag.ReplaceAllString(block[1], "")))
	}
	return strings.Join(lines, "\n"), nil
}

package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// pptxSlidePath matches slide XML entries (ppt/slides/slide1.xml, ...) and
// captures the slide number. Zip entry order is not slide order, so slides
// are sorted by number before extraction.
var pptxSlidePath = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// pptxTxBody matches one text-carrying shape body on a slide.
var pptxTxBody = regexp.MustCompile(`(?s)<p:txBody>(.*?)</p:txBody>`)

// apBlock matches one text paragraph inside a shape body; the self-closing
// alternative comes first so an attributed <a:p .../> is not mistaken for
// an open tag.
var apBlock = regexp.MustCompile(`(?s)<a:p(?:\s[^>]*)?/>|<a:p(?:\s[^>]*)?>(.*?)</a:p>`)

// atTag matches <a:t>text</a:t> or <a:t xml:space="preserve">text</a:t> (and any other attributes).
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// pptxExtractor extracts text from PowerPoint documents. PPTX is a ZIP
// containing ppt/slides/slideN.xml (Office Open XML). For each slide in
// order, each shape carrying text contributes its text, one shape per
// line; a shape's own paragraphs are also newline-separated.
type pptxExtractor struct{}

func (pptxExtractor) capability() string { return "ooxml presentation parser" }
func (pptxExtractor) available() bool    { return true }

func (pptxExtractor) extract(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}

	type slideFile struct {
		num  int
		file *zip.File
	}
	var slides []slideFile
	for _, f := range zr.File {
		m := pptxSlidePath.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{num: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })

	var lines []string
	for _, s := range slides {
		slideXML, err := zipPart(zr, s.file.Name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		for _, body := range pptxTxBody.FindAllStringSubmatch(string(slideXML), -1) {
			lines = append(lines, shapeText(body[1]))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// shapeText linearizes one shape body: paragraphs joined by newline, runs
// within a paragraph concatenated.
func shapeText(body string) string {
	paras := apBlock.FindAllStringSubmatch(body, -1)
	parts := make([]string, 0, len(paras))
	for _, p := range paras {
		var b strings.Builder
		for _, run := range atTag.FindAllStringSubmatch(p[1], -1) {
			b.WriteString(unescapeXML(run[1]))
		}
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

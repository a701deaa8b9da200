// Package extract provides text extraction from various document formats.
//
// Extraction has two failure channels. A missing parsing capability is a
// deployment problem and surfaces as a hard *DependencyMissingError. A
// document that cannot be parsed is expected during bulk scans and is
// absorbed into an inline bracketed diagnostic returned in place of the
// text, so one bad file never aborts a scan.
package extract

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Format identifies a supported document format.
type Format string

// Recognized format tags. Mapping a file extension to a tag is the
// caller's responsibility (see FormatForExtension).
const (
	FormatDOCX Format = "docx"
	FormatODF  Format = "odf"
	FormatPDF  Format = "pdf"
	FormatPPTX Format = "pptx"
	FormatXLSX Format = "xlsx"
)

// DependencyMissingError reports that the parsing capability for a format
// is unavailable in this deployment. It is never folded into extracted
// text; callers should surface it distinctly from document content.
type DependencyMissingError struct {
	Format     Format
	Capability string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("%s extraction unavailable: %s not installed", strings.ToUpper(string(e.Format)), e.Capability)
}

// extractor is one format variant. available reports whether the parsing
// capability can be used right now; extract parses already-read bytes.
type extractor interface {
	capability() string
	available() bool
	extract(content []byte) (string, error)
}

// Dispatcher routes a document to the extractor for its format.
type Dispatcher struct {
	extractors map[Format]extractor

	mu        sync.Mutex
	depWarned map[Format]bool
	logger    *zap.Logger // optional; when set, logs missing capabilities once per format
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithLogger sets a logger for dependency diagnostics.
func WithLogger(l *zap.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher returns a Dispatcher with all built-in format variants
// registered.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		extractors: map[Format]extractor{
			FormatDOCX: docxExtractor{},
			FormatODF:  odfExtractor{},
			FormatPDF:  pdfExtractor{},
			FormatPPTX: pptxExtractor{},
			FormatXLSX: xlsxExtractor{},
		},
		depWarned: make(map[Format]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Extract reads the file at path and returns its linearized text.
// A missing parsing capability returns a *DependencyMissingError; an
// unrecognized format returns a plain error. Every other failure
// (unreadable file, corrupt content) is absorbed into an inline
// diagnostic and returned with a nil error.
func (d *Dispatcher) Extract(path string, format Format) (string, error) {
	ex, err := d.lookup(format)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Diagnostic(format, err), nil
	}
	return d.run(ex, content, format), nil
}

// ExtractBytes extracts text from already-read content. Same failure
// semantics as Extract.
func (d *Dispatcher) ExtractBytes(content []byte, format Format) (string, error) {
	ex, err := d.lookup(format)
	if err != nil {
		return "", err
	}
	return d.run(ex, content, format), nil
}

// lookup resolves the format variant and performs the dependency phase:
// an unavailable capability is a hard error, surfaced before any content
// is touched.
func (d *Dispatcher) lookup(format Format) (extractor, error) {
	ex, ok := d.extractors[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if !ex.available() {
		d.warnMissing(format, ex.capability())
		return nil, &DependencyMissingError{Format: format, Capability: ex.capability()}
	}
	return ex, nil
}

// run performs the extraction phase. Every failure, including a parser
// panic on hostile input, becomes an inline diagnostic.
func (d *Dispatcher) run(ex extractor, content []byte, format Format) (text string) {
	defer func() {
		if r := recover(); r != nil {
			text = Diagnostic(format, fmt.Errorf("parser panic: %v", r))
		}
	}()
	text, err := ex.extract(content)
	if err != nil {
		return Diagnostic(format, err)
	}
	return text
}

// warnMissing logs a missing capability at most once per format, so a bulk
// scan reports one configuration failure per capability rather than one
// per file.
func (d *Dispatcher) warnMissing(format Format, capability string) {
	d.mu.Lock()
	warned := d.depWarned[format]
	d.depWarned[format] = true
	d.mu.Unlock()
	if warned || d.logger == nil {
		return
	}
	d.logger.Error("parsing capability missing",
		zap.String("format", string(format)),
		zap.String("capability", capability))
}

// FormatForExtension maps a file extension (with or without leading dot)
// to its format tag. ok is false for extensions outside the supported set.
func FormatForExtension(ext string) (Format, bool) {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "docx":
		return FormatDOCX, true
	case "odt", "ods", "odp":
		return FormatODF, true
	case "pdf":
		return FormatPDF, true
	case "pptx":
		return FormatPPTX, true
	case "xlsx":
		return FormatXLSX, true
	}
	return "", false
}

// Diagnostic formats a content-extraction failure as inline text, e.g.
// "[PDF extraction error: not a zip]". The bracketed prefix is the
// recognized convention for telling diagnostics apart from real content.
func Diagnostic(format Format, err error) string {
	return fmt.Sprintf("[%s extraction error: %v]", strings.ToUpper(string(format)), err)
}

// IsDiagnostic reports whether text is an inline extraction diagnostic
// rather than document content.
func IsDiagnostic(text string) bool {
	return strings.HasPrefix(text, "[") &&
		strings.HasSuffix(text, "]") &&
		strings.Contains(text, " extraction error: ")
}

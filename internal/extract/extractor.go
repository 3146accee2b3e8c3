// Package extract turns source files into plain text and document metadata.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/vectorize/internal/models"
)

// ErrUnsupported is matched by every *UnsupportedError.
var ErrUnsupported = errors.New("unsupported file type")

// UnsupportedError reports an extension with no registered extractor.
type UnsupportedError struct {
	Ext string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported file type %q", e.Ext)
}

// Is reports whether target is ErrUnsupported.
func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// ExtractionError wraps any failure to read or parse a file. It is a per-file
// failure; callers record it and move on.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extractor pulls plain text out of one file format.
type Extractor interface {
	Extract(content []byte) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(content []byte) (string, error)

// Extract implements Extractor.
func (f ExtractorFunc) Extract(content []byte) (string, error) { return f(content) }

// PropertiesReader is implemented by extractors whose format carries embedded
// document properties.
type PropertiesReader interface {
	Properties(content []byte) (Properties, error)
}

// Properties are the document-level fields some formats embed.
type Properties struct {
	Title     string
	Author    string
	Keywords  string
	PageCount int
}

// formatExtractor bundles a text function with an optional properties function.
type formatExtractor struct {
	text  func([]byte) (string, error)
	props func([]byte) (Properties, error)
}

func (f formatExtractor) Extract(content []byte) (string, error) { return f.text(content) }

func (f formatExtractor) Properties(content []byte) (Properties, error) {
	if f.props == nil {
		return Properties{}, nil
	}
	return f.props(content)
}

// Registry maps lower-case extensions (with the leading dot) to extractors.
// It is read-only after construction and safe for concurrent use.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with every built-in format registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	plain := ExtractorFunc(extractPlain)
	for _, ext := range []string{".txt", ".md", ".rst", ".csv", ".log"} {
		r.Register(ext, plain)
	}
	r.Register(".pdf", formatExtractor{text: extractPDF, props: pdfProperties})
	r.Register(".docx", formatExtractor{text: extractDOCX, props: docxProperties})
	r.Register(".xlsx", formatExtractor{text: extractExcel, props: excelProperties})
	r.Register(".pptx", formatExtractor{text: extractPPTX, props: docxProperties})
	r.Register(".odp", ExtractorFunc(extractODP))
	r.Register(".ods", ExtractorFunc(extractODS))
	r.Register(".odt", ExtractorFunc(extractWithCat))
	r.Register(".rtf", ExtractorFunc(extractWithCat))
	return r
}

// Register adds or replaces the extractor for ext.
func (r *Registry) Register(ext string, e Extractor) {
	r.byExt[normalizeExt(ext)] = e
}

// Supports reports whether ext has an extractor.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.byExt[normalizeExt(ext)]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// ExtractBytes extracts text from content using the extractor for ext.
// An unregistered ext yields *UnsupportedError.
func (r *Registry) ExtractBytes(content []byte, ext string) (string, error) {
	e, ok := r.byExt[normalizeExt(ext)]
	if !ok {
		return "", &UnsupportedError{Ext: ext}
	}
	return e.Extract(content)
}

// ExtractText reads the file at path and returns its text. Every failure,
// including unsupported types, is returned as *ExtractionError.
func (r *Registry) ExtractText(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	text, err := r.ExtractBytes(content, filepath.Ext(path))
	if err != nil {
		return "", &ExtractionError{Path: path, Err: err}
	}
	return text, nil
}

// ExtractMetadata returns filesystem metadata for path plus any embedded
// document properties. Failure to read properties is not an error; only a
// failed stat is.
func (r *Registry) ExtractMetadata(path string) (*models.FileMetadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExtractionError{Path: path, Err: err}
	}
	ext := strings.ToLower(filepath.Ext(path))
	meta := &models.FileMetadata{
		FileName:     filepath.Base(path),
		FilePath:     path,
		Extension:    ext,
		SizeBytes:    info.Size(),
		CreatedTime:  createdTime(info),
		ModifiedTime: info.ModTime(),
		Owner:        fileOwner(info),
	}

	pr, ok := r.byExt[ext].(PropertiesReader)
	if !ok {
		return meta, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return meta, nil
	}
	if props, err := pr.Properties(content); err == nil {
		meta.DocumentTitle = props.Title
		meta.DocumentAuthor = props.Author
		meta.DocumentKeywords = props.Keywords
		meta.PageCount = props.PageCount
	}
	return meta, nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

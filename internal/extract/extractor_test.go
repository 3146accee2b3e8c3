package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtractBytes_plain(t *testing.T) {
	r := NewRegistry()
	got, err := r.ExtractBytes([]byte("Hello world\nLine 2"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Hello world\nLine 2" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainUTF8BOM(t *testing.T) {
	r := NewRegistry()
	got, err := r.ExtractBytes([]byte("\xEF\xBB\xBFcaf\xc3\xa9"), ".md")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainUTF16(t *testing.T) {
	r := NewRegistry()
	content := []byte{0xFF, 0xFE, 'h', 0, 'i', 0}
	got, err := r.ExtractBytes(content, ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "hi" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_plainLatin1(t *testing.T) {
	r := NewRegistry()
	got, err := r.ExtractBytes([]byte("caf\xe9"), ".txt")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "café" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_unsupported(t *testing.T) {
	r := NewRegistry()
	_, err := r.ExtractBytes([]byte("raw content"), ".xyz")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	var ue *UnsupportedError
	if !errors.As(err, &ue) || ue.Ext != ".xyz" {
		t.Errorf("err = %#v", err)
	}
}

func TestRegistry_supportsAndRegister(t *testing.T) {
	r := NewRegistry()
	if !r.Supports(".PDF") || !r.Supports("docx") {
		t.Error("extension lookup should be case-insensitive and accept a missing dot")
	}
	if r.Supports(".xyz") {
		t.Error(".xyz should not be supported")
	}
	r.Register(".xyz", ExtractorFunc(func(b []byte) (string, error) { return strings.ToUpper(string(b)), nil }))
	got, err := r.ExtractBytes([]byte("abc"), ".XYZ")
	if err != nil || got != "ABC" {
		t.Errorf("got %q, %v", got, err)
	}
	found := false
	for _, ext := range r.Extensions() {
		if ext == ".xyz" {
			found = true
		}
	}
	if !found {
		t.Errorf("Extensions() = %v, missing .xyz", r.Extensions())
	}
}

func excelBytes(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	return buf.Bytes()
}

func TestExtractBytes_excel(t *testing.T) {
	content := excelBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "Title")
		f.SetCellValue("Sheet1", "A2", "Value 1")
		f.SetCellValue("Sheet1", "B2", "Value 2")
	})
	got, err := NewRegistry().ExtractBytes(content, ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "[Sheet: Sheet1]\nTitle\nValue 1 | Value 2"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractBytes_excelSkipsEmptyCells(t *testing.T) {
	content := excelBytes(t, func(f *excelize.File) {
		f.SetCellValue("Sheet1", "A1", "left")
		f.SetCellValue("Sheet1", "C1", "right")
		f.NewSheet("Budget")
		f.SetCellValue("Budget", "A1", 42)
	})
	got, err := NewRegistry().ExtractBytes(content, ".xlsx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	want := "[Sheet: Sheet1]\nleft | right\n[Sheet: Budget]\n42"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractText_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(path, []byte("File content"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := NewRegistry().ExtractText(path)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if got != "File content" {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_nonexistent(t *testing.T) {
	_, err := NewRegistry().ExtractText("/nonexistent/path/file.txt")
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *ExtractionError", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err should unwrap to os.ErrNotExist: %v", err)
	}
}

func TestExtractText_unsupportedIsExtractionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.bin")
	if err := os.WriteFile(path, []byte{1, 2, 3}, 0600); err != nil {
		t.Fatal(err)
	}
	_, err := NewRegistry().ExtractText(path)
	var ee *ExtractionError
	if !errors.As(err, &ee) || !errors.Is(err, ErrUnsupported) {
		t.Errorf("err = %v", err)
	}
}

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const docxBody = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
	`<w:p w:rsidR="00AB"><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Quarterly </w:t></w:r><w:r><w:t>report</w:t></w:r></w:p>` +
	`<w:p/>` +
	`<w:p><w:r><w:t xml:space="preserve">Revenue &amp; costs</w:t></w:r></w:p>` +
	`</w:body></w:document>`

func TestExtractBytes_docx(t *testing.T) {
	content := zipBytes(t, map[string]string{"word/document.xml": docxBody})
	got, err := NewRegistry().ExtractBytes(content, ".docx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "Quarterly report\nRevenue & costs" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_docxContentTypes(t *testing.T) {
	tests := []struct {
		name  string
		types string
	}{
		{"part name first", `<Override PartName="/word/document2.xml" ContentType="` + docxMainContentType + `"/>`},
		{"content type first", `<Override ContentType="` + docxMainContentType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := zipBytes(t, map[string]string{
				"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types>` + tt.types + `</Types>`,
				"word/document2.xml":  `<w:document><w:body><w:p><w:r><w:t>From document2</w:t></w:r></w:p></w:body></w:document>`,
			})
			got, err := NewRegistry().ExtractBytes(content, ".docx")
			if err != nil {
				t.Fatalf("ExtractBytes: %v", err)
			}
			if got != "From document2" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestExtractBytes_docxMissingBody(t *testing.T) {
	content := zipBytes(t, map[string]string{"other.xml": "<x/>"})
	if _, err := NewRegistry().ExtractBytes(content, ".docx"); err == nil {
		t.Error("expected error when word/document.xml is missing")
	}
}

func TestExtractBytes_pptxSlideOrder(t *testing.T) {
	slide := func(text string) string {
		return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
	}
	content := zipBytes(t, map[string]string{
		"ppt/slides/slide10.xml":            slide("Tenth"),
		"ppt/slides/slide2.xml":             slide("Second"),
		"ppt/slides/slide1.xml":             slide("First"),
		"ppt/slides/_rels/slide1.xml.rels":  "<Relationships/>",
		"ppt/slideLayouts/slideLayout1.xml": slide("Layout"),
	})
	got, err := NewRegistry().ExtractBytes(content, ".pptx")
	if err != nil {
		t.Fatalf("ExtractBytes: %v", err)
	}
	if got != "First\nSecond\nTenth" {
		t.Errorf("got %q", got)
	}
}

func TestExtractBytes_pptxNotZip(t *testing.T) {
	if _, err := NewRegistry().ExtractBytes([]byte("not a zip"), ".pptx"); err == nil {
		t.Error("expected error for invalid pptx")
	}
}

func TestExtractBytes_opendocument(t *testing.T) {
	odp := `<office:document><office:body><draw:page><text:h text:outline-level="1">Slide title</text:h>` +
		`<text:p>Body <text:span text:style-name="T1">text</text:span></text:p></draw:page></office:body></office:document>`
	ods := `<office:document><office:body><table:table><table:table-row>` +
		`<table:table-cell><text:p>Cell A</text:p></table:table-cell><table:table-cell><text:p>Cell B</text:p></table:table-cell>` +
		`</table:table-row></table:table></office:body></office:document>`

	r := NewRegistry()
	got, err := r.ExtractBytes(zipBytes(t, map[string]string{"content.xml": odp}), ".odp")
	if err != nil {
		t.Fatalf("odp: %v", err)
	}
	if got != "Slide title\nBody text" {
		t.Errorf("odp got %q", got)
	}
	got, err = r.ExtractBytes(zipBytes(t, map[string]string{"content.xml": ods}), ".ods")
	if err != nil {
		t.Fatalf("ods: %v", err)
	}
	if got != "Cell A\nCell B" {
		t.Errorf("ods got %q", got)
	}
}

func TestExtractBytes_opendocumentMissingContent(t *testing.T) {
	content := zipBytes(t, map[string]string{"other.xml": "<x/>"})
	for _, ext := range []string{".odp", ".ods"} {
		if _, err := NewRegistry().ExtractBytes(content, ext); err == nil {
			t.Errorf("%s: expected error when content.xml missing", ext)
		}
	}
}

func TestExtractBytes_pdfNotPDF(t *testing.T) {
	if _, err := NewRegistry().ExtractBytes([]byte("plain words"), ".pdf"); err == nil {
		t.Error("expected error for invalid pdf")
	}
}

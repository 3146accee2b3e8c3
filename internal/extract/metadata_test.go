package extract

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestExtractMetadata_plainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Meeting Notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatal(err)
	}

	meta, err := NewRegistry().ExtractMetadata(path)
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if meta.FileName != "Meeting Notes.txt" || meta.Extension != ".txt" || meta.SizeBytes != 5 {
		t.Errorf("unexpected metadata: %+v", meta)
	}
	if !meta.ModifiedTime.Equal(mtime) {
		t.Errorf("modified = %v, want %v", meta.ModifiedTime, mtime)
	}
	if meta.Title() != "Meeting Notes" {
		t.Errorf("title = %q", meta.Title())
	}
	if meta.OwnerOrUnknown() == "" {
		t.Error("owner should never be empty after fallback")
	}
}

func TestExtractMetadata_missingFile(t *testing.T) {
	if _, err := NewRegistry().ExtractMetadata(filepath.Join(t.TempDir(), "gone.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestExtractMetadata_docxCoreProperties(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>Annual Plan</dc:title><dc:creator>Finance Team</dc:creator><cp:keywords>budget, plan</cp:keywords>
</cp:coreProperties>`
	content := zipBytes(t, map[string]string{
		"word/document.xml": docxBody,
		"docProps/core.xml": core,
	})
	path := filepath.Join(t.TempDir(), "plan.docx")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	meta, err := NewRegistry().ExtractMetadata(path)
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if meta.DocumentTitle != "Annual Plan" || meta.DocumentAuthor != "Finance Team" || meta.DocumentKeywords != "budget, plan" {
		t.Errorf("unexpected properties: %+v", meta)
	}
	if meta.Title() != "Annual Plan" {
		t.Errorf("title = %q", meta.Title())
	}
}

func TestExtractMetadata_corruptPropertiesStillReturnsFileInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0600); err != nil {
		t.Fatal(err)
	}
	meta, err := NewRegistry().ExtractMetadata(path)
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if meta.DocumentTitle != "" || meta.Title() != "broken" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestExtractMetadata_excelCreatorIsAuthor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	f := excelize.NewFile()
	if err := f.SetDocProps(&excelize.DocProperties{Title: "Inventory", Creator: "Ops", Keywords: "stock"}); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	meta, err := NewRegistry().ExtractMetadata(path)
	if err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if meta.DocumentTitle != "Inventory" || meta.DocumentAuthor != "Ops" || meta.DocumentKeywords != "stock" {
		t.Errorf("unexpected properties: %+v", meta)
	}
}

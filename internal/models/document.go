// Package models defines the records that flow through the indexing pipeline.
package models

import "time"

// MaxContentChars caps the content field stored alongside every record.
const MaxContentChars = 50000

// FileTypeFile is the fileType value of every record produced from the file share.
const FileTypeFile = "File"

// UnknownOwner is used when a file's owner cannot be resolved.
const UnknownOwner = "Unknown"

// FileTask is one discovered file scheduled for processing.
type FileTask struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// FileMetadata describes a source file. Document properties are empty when the
// format carries none.
type FileMetadata struct {
	FileName         string    `json:"file_name"`
	FilePath         string    `json:"file_path"`
	Extension        string    `json:"extension"`
	SizeBytes        int64     `json:"size_bytes"`
	CreatedTime      time.Time `json:"created_time"`
	ModifiedTime     time.Time `json:"modified_time"`
	Owner            string    `json:"owner"`
	DocumentTitle    string    `json:"document_title,omitempty"`
	DocumentAuthor   string    `json:"document_author,omitempty"`
	DocumentKeywords string    `json:"document_keywords,omitempty"`
	PageCount        int       `json:"page_count,omitempty"`
}

// Title returns the document title, falling back to the file name without extension.
func (m *FileMetadata) Title() string {
	if m.DocumentTitle != "" {
		return m.DocumentTitle
	}
	name := m.FileName
	if m.Extension != "" && len(name) > len(m.Extension) {
		return name[:len(name)-len(m.Extension)]
	}
	return name
}

// OwnerOrUnknown returns the owner or UnknownOwner when empty.
func (m *FileMetadata) OwnerOrUnknown() string {
	if m.Owner == "" {
		return UnknownOwner
	}
	return m.Owner
}

// Record is anything the uploader can submit to a search backend.
type Record interface {
	Key() string
}

// ChunkDocument is the upload unit in vector mode: one chunk of one file with its embedding.
type ChunkDocument struct {
	ID               string    `json:"id"`
	Content          string    `json:"content"`
	Chunk            string    `json:"chunk"`
	ContentVector    []float32 `json:"contentVector"`
	ChunkNumber      int       `json:"chunkNumber"`
	TotalChunks      int       `json:"totalChunks"`
	Title            string    `json:"title"`
	Name             string    `json:"name"`
	FilePath         string    `json:"filePath"`
	Extension        string    `json:"extension"`
	Size             int64     `json:"size"`
	CreatedDateTime  time.Time `json:"createdDateTime"`
	ModifiedDateTime time.Time `json:"modifiedDateTime"`
	CreatedBy        string    `json:"createdBy"`
	LastModifiedBy   string    `json:"lastModifiedBy"`
	Author           string    `json:"author,omitempty"`
	FileType         string    `json:"fileType"`
	URL              string    `json:"url"`
}

// Key implements Record.
func (d *ChunkDocument) Key() string { return d.ID }

// FileDocument is the upload unit in standard mode: one record per file, no vector.
type FileDocument struct {
	ID               string    `json:"id"`
	Content          string    `json:"content"`
	Title            string    `json:"title"`
	Name             string    `json:"name"`
	FilePath         string    `json:"filePath"`
	Extension        string    `json:"extension"`
	Size             int64     `json:"size"`
	CreatedDateTime  time.Time `json:"createdDateTime"`
	ModifiedDateTime time.Time `json:"modifiedDateTime"`
	CreatedBy        string    `json:"createdBy"`
	LastModifiedBy   string    `json:"lastModifiedBy"`
	Author           string    `json:"author,omitempty"`
	Keywords         string    `json:"keywords,omitempty"`
	FileType         string    `json:"fileType"`
	URL              string    `json:"url"`
}

// Key implements Record.
func (d *FileDocument) Key() string { return d.ID }

// TruncateContent cuts s to at most MaxContentChars characters.
func TruncateContent(s string) string {
	if len(s) <= MaxContentChars {
		return s
	}
	r := []rune(s)
	if len(r) <= MaxContentChars {
		return s
	}
	return string(r[:MaxContentChars])
}

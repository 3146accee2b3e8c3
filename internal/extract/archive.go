package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// corePropsPath is where OOXML packages keep Dublin Core properties.
const corePropsPath = "docProps/core.xml"

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readEntry returns the named entry's bytes, or nil when the archive has no such entry.
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return data, nil
	}
	return nil, nil
}

// coreProps mirrors the fields of docProps/core.xml we index. encoding/xml
// matches on local names so the dc:/cp: prefixes need no namespace setup.
type coreProps struct {
	Title    string `xml:"title"`
	Creator  string `xml:"creator"`
	Keywords string `xml:"keywords"`
}

// docxProperties reads docProps/core.xml from any OOXML package.
func docxProperties(content []byte) (Properties, error) {
	zr, err := openZip(content, "OOXML")
	if err != nil {
		return Properties{}, err
	}
	data, err := readEntry(zr, corePropsPath)
	if err != nil || data == nil {
		return Properties{}, err
	}
	var core coreProps
	if err := xml.Unmarshal(data, &core); err != nil {
		return Properties{}, fmt.Errorf("parse %s: %w", corePropsPath, err)
	}
	return Properties{
		Title:    strings.TrimSpace(core.Title),
		Author:   strings.TrimSpace(core.Creator),
		Keywords: strings.TrimSpace(core.Keywords),
	}, nil
}

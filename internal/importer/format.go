package importer

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Format identifies a supported input file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
	FormatXLSX Format = "xlsx"
)

// DetectFormat selects the parser for a path by its extension. XML feeds
// often arrive gzip-compressed, so data.xml.gz resolves to xml.
func DetectFormat(path string) (Format, error) {
	name := strings.ToLower(filepath.Base(path))
	if strings.HasSuffix(name, ".gz") {
		if filepath.Ext(strings.TrimSuffix(name, ".gz")) == ".xml" {
			return FormatXML, nil
		}
		return "", eris.Wrapf(ErrUnsupportedFormat, "detect format: %s", filepath.Base(path))
	}
	switch filepath.Ext(name) {
	case ".csv":
		return FormatCSV, nil
	case ".json":
		return FormatJSON, nil
	case ".xml":
		return FormatXML, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", eris.Wrapf(ErrUnsupportedFormat, "detect format: %s", filepath.Base(path))
	}
}

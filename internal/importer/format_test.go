package importer

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"pois.csv", FormatCSV},
		{"/data/export.CSV", FormatCSV},
		{"pois.json", FormatJSON},
		{"pois.xml", FormatXML},
		{"feed.XML", FormatXML},
		{"feed.xml.gz", FormatXML},
		{"Feed.XML.GZ", FormatXML},
		{"pois.xlsx", FormatXLSX},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.path)
		require.NoError(t, err, tt.path)
		assert.Equal(t, tt.want, got, tt.path)
	}
}

func TestDetectFormat_Unsupported(t *testing.T) {
	paths := []string{"pois.txt", "pois", "notes.yaml", "pois.csv.gz", "archive.gz"}
	for _, path := range paths {
		_, err := DetectFormat(path)
		require.Error(t, err, path)
		assert.True(t, eris.Is(err, ErrUnsupportedFormat), path)
		assert.Contains(t, err.Error(), "unsupported")
	}
}

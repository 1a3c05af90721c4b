package importer

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"regexp"

	"github.com/rotisserie/eris"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// openSource opens a local file with transparent gzip decompression and
// UTF-8 BOM stripping. Real-world feeds frequently arrive gzipped or
// with a BOM from Windows export tooling.
func openSource(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}

	br := bufio.NewReader(f)
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, eris.Wrapf(ErrMalformedInput, "gzip open %s: %v", path, err)
		}
		return &sourceReader{r: stripBOM(bufio.NewReader(gz)), closers: []io.Closer{gz, f}}, nil
	}

	return &sourceReader{r: stripBOM(br), closers: []io.Closer{f}}, nil
}

// stripBOM discards a leading UTF-8 byte order mark.
func stripBOM(br *bufio.Reader) io.Reader {
	if head, err := br.Peek(3); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(3)
	}
	return br
}

type sourceReader struct {
	r       io.Reader
	closers []io.Closer
}

func (s *sourceReader) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *sourceReader) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// entityRe matches an ampersand optionally followed by a well-formed
// entity reference.
var entityRe = regexp.MustCompile(`&(amp;|lt;|gt;|quot;|apos;|#[0-9]+;|#x[0-9A-Fa-f]+;)?`)

// sanitizeXML prepares a raw XML document for parsing: drops junk before
// the first '<' and escapes bare ampersands, both common in
// hand-assembled feeds.
func sanitizeXML(data []byte) []byte {
	if i := bytes.IndexByte(data, '<'); i > 0 {
		data = data[i:]
	}
	return entityRe.ReplaceAllFunc(data, func(m []byte) []byte {
		if len(m) == 1 {
			return []byte("&amp;")
		}
		return m
	})
}

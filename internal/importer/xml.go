package importer

import (
	"context"
	"encoding/xml"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// StreamXML decodes record elements from an XML document and emits one
// RawRecord per element. Elements are matched by local name; when element
// is empty, every element two levels deep is treated as a record. Record
// fields come from attributes and direct child elements. Both channels
// close when processing completes.
func StreamXML(ctx context.Context, r io.Reader, element string) (<-chan RawRecord, <-chan error) {
	recCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		decoder := xml.NewDecoder(r)
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, eris.Wrapf(err, "xml: unsupported charset %q", charset)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		depth := 0
		sawElement := false

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				if !sawElement {
					errCh <- eris.Wrapf(ErrMalformedInput, "xml: no elements in document")
				}
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(ErrMalformedInput, "xml: read token: %v", err)
				return
			}

			switch t := tok.(type) {
			case xml.StartElement:
				sawElement = true
				depth++
				if t.Name.Local != element && !(element == "" && depth == 2) {
					continue
				}

				rec, err := decodeXMLRecord(decoder, t)
				depth--
				if err != nil {
					errCh <- err
					return
				}

				select {
				case recCh <- rec:
				case <-ctx.Done():
					errCh <- eris.Wrap(ctx.Err(), "xml: context cancelled")
					return
				}
			case xml.EndElement:
				depth--
			}
		}
	}()

	return recCh, errCh
}

// decodeXMLRecord consumes the subtree started by start and flattens it
// into a RawRecord. Attributes and direct children become fields; child
// text is trimmed.
func decodeXMLRecord(dec *xml.Decoder, start xml.StartElement) (RawRecord, error) {
	rec := make(RawRecord)
	for _, attr := range start.Attr {
		rec[normalizeKey(attr.Name.Local)] = attr.Value
	}

	depth := 0
	var field string
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrapf(ErrMalformedInput, "xml: decode record: %v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 1 {
				field = normalizeKey(t.Name.Local)
				text.Reset()
			}
		case xml.CharData:
			if depth >= 1 {
				text.Write(t)
			}
		case xml.EndElement:
			if depth == 0 {
				return rec, nil
			}
			if depth == 1 {
				rec[field] = strings.TrimSpace(text.String())
			}
			depth--
		}
	}
}

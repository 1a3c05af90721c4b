package importer

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// recordsKeys are the top-level object keys accepted as the record
// container when a JSON document is an object rather than a bare array.
var recordsKeys = map[string]bool{
	"records": true,
	"pois":    true,
	"data":    true,
}

// StreamJSON reads a JSON document and emits one RawRecord per array
// element. The document must be either an array of objects or an object
// with a records array under one of recordsKeys. Both channels close
// when processing completes.
func StreamJSON(ctx context.Context, r io.Reader) (<-chan RawRecord, <-chan error) {
	recCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		dec := json.NewDecoder(r)

		tok, err := dec.Token()
		if err != nil {
			errCh <- eris.Wrapf(ErrMalformedInput, "json: read opening token: %v", err)
			return
		}
		delim, ok := tok.(json.Delim)
		if !ok {
			errCh <- eris.Wrapf(ErrMalformedInput, "json: expected array or object, got %v", tok)
			return
		}

		switch delim {
		case '[':
			if !streamJSONArray(ctx, dec, recCh, errCh) {
				return
			}
			if _, err := dec.Token(); err != io.EOF {
				errCh <- eris.Wrapf(ErrMalformedInput, "json: trailing data after records array")
			}
			return
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					errCh <- eris.Wrapf(ErrMalformedInput, "json: read object key: %v", err)
					return
				}
				key, _ := keyTok.(string)
				if recordsKeys[key] {
					openTok, err := dec.Token()
					if err != nil {
						errCh <- eris.Wrapf(ErrMalformedInput, "json: read %s value: %v", key, err)
						return
					}
					if d, ok := openTok.(json.Delim); !ok || d != '[' {
						errCh <- eris.Wrapf(ErrMalformedInput, "json: %s must be an array", key)
						return
					}
					streamJSONArray(ctx, dec, recCh, errCh)
					return
				}
				var skip any
				if err := dec.Decode(&skip); err != nil {
					errCh <- eris.Wrapf(ErrMalformedInput, "json: skip %s: %v", key, err)
					return
				}
			}
			errCh <- eris.Wrapf(ErrMalformedInput, "json: no records array in object")
			return
		default:
			errCh <- eris.Wrapf(ErrMalformedInput, "json: expected array or object, got %v", delim)
			return
		}
	}()

	return recCh, errCh
}

// streamJSONArray emits the elements of an already-opened array and
// consumes its closing bracket. It reports whether the array ended
// cleanly; on failure the error has already been sent.
func streamJSONArray(ctx context.Context, dec *json.Decoder, recCh chan<- RawRecord, errCh chan<- error) bool {
	for dec.More() {
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
			return false
		default:
		}

		var item map[string]any
		if err := dec.Decode(&item); err != nil {
			errCh <- eris.Wrapf(ErrMalformedInput, "json: decode element: %v", err)
			return false
		}
		if item == nil {
			errCh <- eris.Wrapf(ErrMalformedInput, "json: null element")
			return false
		}

		rec := make(RawRecord, len(item))
		for k, v := range item {
			rec[normalizeKey(k)] = v
		}

		select {
		case recCh <- rec:
		case <-ctx.Done():
			errCh <- ctx.Err()
			return false
		}
	}

	if _, err := dec.Token(); err != nil {
		errCh <- eris.Wrapf(ErrMalformedInput, "json: read closing token: %v", err)
		return false
	}
	return true
}

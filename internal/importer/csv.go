package importer

import (
	"context"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

// StreamCSV reads a CSV document and emits one RawRecord per data row,
// keyed by the normalized header. Rows whose column count disagrees with
// the header abort the stream. Both channels close when the stream ends.
func StreamCSV(ctx context.Context, r io.Reader) (<-chan RawRecord, <-chan error) {
	recCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		cr := csv.NewReader(r)
		cr.TrimLeadingSpace = true

		header, err := cr.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			errCh <- eris.Wrapf(ErrMalformedInput, "csv: read header: %v", err)
			return
		}
		for i, col := range header {
			header[i] = normalizeKey(col)
		}

		for {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			default:
			}

			row, err := cr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(ErrMalformedInput, "csv: read row: %v", err)
				return
			}

			select {
			case recCh <- rowToRecord(header, row):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return recCh, errCh
}

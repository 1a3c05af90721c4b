package importer

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// StreamXLSX reads a workbook sheet and emits one RawRecord per data row,
// keyed by the normalized header row. Rows carrying more non-empty cells
// than the header abort the stream; trailing empty cells are dropped.
// Both channels close when processing completes.
func StreamXLSX(ctx context.Context, path, sheetName string) (<-chan RawRecord, <-chan error) {
	recCh := make(chan RawRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		f, err := xlsx.OpenFile(path)
		if err != nil {
			errCh <- eris.Wrapf(ErrMalformedInput, "xlsx: open file: %v", err)
			return
		}

		sheet, err := pickSheet(f, sheetName)
		if err != nil {
			errCh <- err
			return
		}

		var header []string
		for i, row := range sheet.Rows {
			if ctx.Err() != nil {
				errCh <- ctx.Err()
				return
			}

			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}

			if i == 0 {
				header = make([]string, len(cells))
				for j, col := range cells {
					header[j] = normalizeKey(col)
				}
				continue
			}

			if len(cells) > len(header) {
				for _, extra := range cells[len(header):] {
					if extra != "" {
						errCh <- eris.Wrapf(ErrMalformedInput, "xlsx: row %d has %d cells, header has %d", i+1, len(cells), len(header))
						return
					}
				}
				cells = cells[:len(header)]
			}

			select {
			case recCh <- rowToRecord(header, cells):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
	}()

	return recCh, errCh
}

func pickSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	if name != "" {
		sheet, ok := f.Sheet[name]
		if !ok {
			return nil, eris.Wrapf(ErrMalformedInput, "xlsx: sheet %q not found", name)
		}
		return sheet, nil
	}

	if len(f.Sheets) == 0 {
		return nil, eris.Wrapf(ErrMalformedInput, "xlsx: workbook has no sheets")
	}
	return f.Sheets[0], nil
}

package importer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/poi-admin/internal/model"
)

// Store is the slice of the catalog store the importer needs.
type Store interface {
	FindByExternalID(ctx context.Context, externalID string) (*model.PoI, error)
	Insert(ctx context.Context, p *model.PoI) (string, error)
	Update(ctx context.Context, p *model.PoI) error
	DeleteAllPoIs(ctx context.Context) (int, error)
	RecordImportRun(ctx context.Context, f *model.FileSummary) error
}

// Options configures a single import run.
type Options struct {
	DryRun     bool   // parse and validate only, no store writes
	Reset      bool   // delete the whole catalog before importing
	XMLElement string // XML record element name; empty auto-detects
	XLSXSheet  string // workbook sheet name; empty uses the first sheet
}

// Importer drives files through parse, normalize and upsert.
type Importer struct {
	store   Store
	mapping *Mapping
	opts    Options
	limiter *rate.Limiter
}

// New builds an Importer. A nil mapping falls back to the defaults; the
// store may be nil only for dry runs.
func New(st Store, m *Mapping, opts Options) *Importer {
	if m == nil {
		m = DefaultMapping()
	}
	return &Importer{
		store:   st,
		mapping: m,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// Run imports the given files sequentially. Files are independent: a
// fatal error in one is recorded in its summary and the run moves on to
// the next. The returned error covers run-level failures only (context
// cancellation, catalog reset), never per-file ones.
func (imp *Importer) Run(ctx context.Context, paths []string) (*model.RunSummary, error) {
	log := zap.L().With(zap.String("component", "importer"))

	if imp.opts.Reset && !imp.opts.DryRun {
		n, err := imp.store.DeleteAllPoIs(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "importer: reset catalog")
		}
		log.Info("catalog reset", zap.Int("deleted", n))
	}

	sum := &model.RunSummary{}

	for _, path := range paths {
		select {
		case <-ctx.Done():
			return sum, ctx.Err()
		default:
		}

		fileLog := log.With(zap.String("file", path))
		fs := imp.importFile(ctx, path)
		sum.Add(*fs)

		if !imp.opts.DryRun {
			if err := imp.store.RecordImportRun(ctx, fs); err != nil {
				fileLog.Error("failed to record import run", zap.Error(err))
			}
		}

		if fs.Failed() {
			fileLog.Error("import failed", zap.String("error", fs.Err), zap.Int("total", fs.Total))
			continue
		}
		fileLog.Info("import complete",
			zap.Int("created", fs.Created),
			zap.Int("updated", fs.Updated),
			zap.Int("unchanged", fs.Unchanged),
			zap.Int("errored", fs.Errored),
			zap.Int("total", fs.Total),
		)
	}

	log.Info("run complete",
		zap.Int("files", sum.FilesProcessed()),
		zap.Int("files_failed", sum.FilesFailed),
		zap.Int("created", sum.Created),
		zap.Int("updated", sum.Updated),
		zap.Int("unchanged", sum.Unchanged),
		zap.Int("errored", sum.Errored),
		zap.Int("total", sum.Total),
	)
	return sum, nil
}

// importFile processes one file and always returns a summary; fatal
// problems land in the summary's Err instead of an error return.
func (imp *Importer) importFile(ctx context.Context, path string) *model.FileSummary {
	fs := &model.FileSummary{Path: path, StartedAt: time.Now().UTC()}
	defer func() { fs.FinishedAt = time.Now().UTC() }()

	format, err := DetectFormat(path)
	if err != nil {
		fs.Err = err.Error()
		return fs
	}
	fs.Format = string(format)

	recCh, errCh, closeFn, err := imp.openStream(ctx, path, format)
	if err != nil {
		fs.Err = err.Error()
		return fs
	}
	defer closeFn()

	log := zap.L().With(zap.String("component", "importer"), zap.String("file", path))

	for raw := range recCh {
		fs.Total++
		if imp.limiter.Allow() {
			log.Info("import progress", zap.Int("records", fs.Total))
		}

		p, err := Normalize(imp.mapping.Apply(raw))
		if err != nil {
			fs.Errored++
			re := model.RecordError{Index: fs.Total, Reason: err.Error()}
			var verr *ValidationError
			if errors.As(err, &verr) {
				re.Fields = verr.FieldNames()
			}
			fs.RecordErrors = append(fs.RecordErrors, re)
			log.Warn("record failed validation", zap.Int("index", fs.Total), zap.String("reason", err.Error()))
			continue
		}

		if imp.opts.DryRun {
			continue
		}

		action, err := imp.upsert(ctx, p)
		if err != nil {
			fs.Errored++
			fs.RecordErrors = append(fs.RecordErrors, model.RecordError{Index: fs.Total, Reason: err.Error()})
			log.Warn("record upsert failed", zap.Int("index", fs.Total), zap.Error(err))
			continue
		}
		switch action {
		case actionCreated:
			fs.Created++
		case actionUpdated:
			fs.Updated++
		case actionUnchanged:
			fs.Unchanged++
		}
	}

	if err := <-errCh; err != nil {
		fs.Err = err.Error()
	}
	return fs
}

// openStream starts the parser for a file. The returned close function
// must be called once streaming ends. XML documents are read fully up
// front so they can be sanitized before parsing.
func (imp *Importer) openStream(ctx context.Context, path string, format Format) (<-chan RawRecord, <-chan error, func(), error) {
	noop := func() {}

	switch format {
	case FormatCSV:
		src, err := openSource(path)
		if err != nil {
			return nil, nil, nil, err
		}
		recCh, errCh := StreamCSV(ctx, src)
		return recCh, errCh, func() { src.Close() }, nil
	case FormatJSON:
		src, err := openSource(path)
		if err != nil {
			return nil, nil, nil, err
		}
		recCh, errCh := StreamJSON(ctx, src)
		return recCh, errCh, func() { src.Close() }, nil
	case FormatXML:
		src, err := openSource(path)
		if err != nil {
			return nil, nil, nil, err
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, nil, nil, eris.Wrapf(err, "read %s", path)
		}
		recCh, errCh := StreamXML(ctx, bytes.NewReader(sanitizeXML(data)), imp.opts.XMLElement)
		return recCh, errCh, noop, nil
	case FormatXLSX:
		recCh, errCh := StreamXLSX(ctx, path, imp.opts.XLSXSheet)
		return recCh, errCh, noop, nil
	default:
		return nil, nil, nil, eris.Wrapf(ErrUnsupportedFormat, "open stream: %s", path)
	}
}

type upsertAction int

const (
	actionCreated upsertAction = iota
	actionUpdated
	actionUnchanged
)

// upsert reconciles one record against the store by external id:
// insert when absent, replace when any imported field differs, no-op
// when identical.
func (imp *Importer) upsert(ctx context.Context, p *model.PoI) (upsertAction, error) {
	existing, err := imp.store.FindByExternalID(ctx, p.ExternalID)
	if err != nil {
		return 0, eris.Wrapf(err, "importer: find %s", p.ExternalID)
	}

	if existing == nil {
		if _, err := imp.store.Insert(ctx, p); err != nil {
			return 0, eris.Wrapf(err, "importer: insert %s", p.ExternalID)
		}
		return actionCreated, nil
	}

	if existing.EqualImportFields(p) {
		return actionUnchanged, nil
	}

	p.ID = existing.ID
	if err := imp.store.Update(ctx, p); err != nil {
		return 0, eris.Wrapf(err, "importer: update %s", p.ExternalID)
	}
	return actionUpdated, nil
}

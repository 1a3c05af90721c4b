package model

import "time"

// ImportStatus represents the terminal state of a single file import.
type ImportStatus string

const (
	ImportStatusComplete ImportStatus = "complete"
	ImportStatusFailed   ImportStatus = "failed"
)

// RecordError describes one record that failed validation or persistence.
// Index is 1-based within the file.
type RecordError struct {
	Index  int      `json:"index"`
	Fields []string `json:"fields,omitempty"`
	Reason string   `json:"reason"`
}

// FileSummary aggregates the outcome of importing one file.
type FileSummary struct {
	Path         string        `json:"path"`
	Format       string        `json:"format,omitempty"`
	Created      int           `json:"created"`
	Updated      int           `json:"updated"`
	Unchanged    int           `json:"unchanged"`
	Errored      int           `json:"errored"`
	Total        int           `json:"total"`
	Err          string        `json:"error,omitempty"`
	RecordErrors []RecordError `json:"record_errors,omitempty"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
}

// Failed reports whether the file hit a fatal parse or I/O error.
// Record-level validation failures do not fail a file.
func (f *FileSummary) Failed() bool {
	return f.Err != ""
}

// Status returns the terminal import status for the file.
func (f *FileSummary) Status() ImportStatus {
	if f.Failed() {
		return ImportStatusFailed
	}
	return ImportStatusComplete
}

// RunSummary aggregates counts across all files of one import invocation.
type RunSummary struct {
	Files       []FileSummary `json:"files"`
	Created     int           `json:"created"`
	Updated     int           `json:"updated"`
	Unchanged   int           `json:"unchanged"`
	Errored     int           `json:"errored"`
	Total       int           `json:"total"`
	FilesFailed int           `json:"files_failed"`
}

// FilesProcessed reports how many files the run attempted.
func (r *RunSummary) FilesProcessed() int { return len(r.Files) }

// Add folds a file summary into the aggregate.
func (r *RunSummary) Add(f FileSummary) {
	r.Files = append(r.Files, f)
	r.Created += f.Created
	r.Updated += f.Updated
	r.Unchanged += f.Unchanged
	r.Errored += f.Errored
	r.Total += f.Total
	if f.Failed() {
		r.FilesFailed++
	}
}

// ImportRun is one persisted row of import history.
type ImportRun struct {
	ID         string       `json:"id"`
	Path       string       `json:"path"`
	Format     string       `json:"format"`
	Status     ImportStatus `json:"status"`
	Created    int          `json:"created"`
	Updated    int          `json:"updated"`
	Unchanged  int          `json:"unchanged"`
	Errored    int          `json:"errored"`
	Total      int          `json:"total"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

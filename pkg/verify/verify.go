// Package verify checks the output artifacts of a render run.
//
// The checks are deliberately simple preconditions: the MP4 must exist
// and clear a minimum byte size, and the run log and summary should be
// present. A missing log only warns; a missing or undersized MP4 fails
// the run.
package verify

import (
	"os"

	perrors "github.com/mkondo/posegate/pkg/errors"
)

// MinMP4Bytes is the smallest MP4 accepted as a real render. Anything
// below this is a black/empty clip regardless of what the encoder
// reported.
const MinMP4Bytes = 200000

// Paths names the artifacts to verify.
type Paths struct {
	MP4     string
	RunLog  string
	Summary string
}

// Report is the outcome of a verification pass.
type Report struct {
	MP4Size  int64
	Warnings []string
}

// Check verifies the artifacts. The returned error is nil only when
// the MP4 exists and clears minBytes (0 uses MinMP4Bytes); missing
// run-log or summary files are reported as warnings, not errors.
func Check(paths Paths, minBytes int64) (*Report, error) {
	if minBytes <= 0 {
		minBytes = MinMP4Bytes
	}

	report := &Report{}

	info, err := os.Stat(paths.MP4)
	if err != nil {
		return report, perrors.New(perrors.ErrCodeFileNotFound, "MP4 missing: %s", paths.MP4)
	}
	report.MP4Size = info.Size()
	if info.Size() < minBytes {
		return report, perrors.New(perrors.ErrCodeOutputUndersized,
			"MP4 too small: %s (%d bytes < %d)", paths.MP4, info.Size(), minBytes)
	}

	if paths.RunLog != "" {
		if _, err := os.Stat(paths.RunLog); err != nil {
			report.Warnings = append(report.Warnings, "run.log.json missing")
		}
	}
	if paths.Summary != "" {
		if _, err := os.Stat(paths.Summary); err != nil {
			report.Warnings = append(report.Warnings, "summary.csv missing")
		}
	}

	return report, nil
}

// CheckUpload validates a file before upload: it must exist (else
// FILE_NOT_FOUND) and clear minBytes (else OUTPUT_UNDERSIZED, which
// maps to exit code 3).
func CheckUpload(path string, minBytes int64) error {
	if minBytes <= 0 {
		minBytes = MinMP4Bytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return perrors.New(perrors.ErrCodeFileNotFound, "File not found: %s", path)
	}
	if info.Size() < minBytes {
		return perrors.New(perrors.ErrCodeOutputUndersized,
			"File too small to publish: %s (%d bytes < %d)", path, info.Size(), minBytes)
	}
	return nil
}

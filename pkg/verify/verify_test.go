package verify

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	perrors "github.com/mkondo/posegate/pkg/errors"
)

func writeFile(t *testing.T, path string, size int) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{0xAB}, size), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestCheckMissingMP4(t *testing.T) {
	dir := t.TempDir()
	_, err := Check(Paths{MP4: filepath.Join(dir, "missing.mp4")}, 0)
	if !perrors.Is(err, perrors.ErrCodeFileNotFound) {
		t.Errorf("err = %v, want FILE_NOT_FOUND", err)
	}
	if perrors.ExitCode(err) != 1 {
		t.Errorf("exit code = %d, want 1", perrors.ExitCode(err))
	}
}

func TestCheckUndersizedMP4(t *testing.T) {
	dir := t.TempDir()
	mp4 := filepath.Join(dir, "demo.mp4")
	writeFile(t, mp4, 100)

	report, err := Check(Paths{MP4: mp4}, 0)
	if !perrors.Is(err, perrors.ErrCodeOutputUndersized) {
		t.Errorf("err = %v, want OUTPUT_UNDERSIZED", err)
	}
	if report.MP4Size != 100 {
		t.Errorf("MP4Size = %d, want 100", report.MP4Size)
	}
}

func TestCheckWarningsForMissingLogs(t *testing.T) {
	dir := t.TempDir()
	mp4 := filepath.Join(dir, "demo.mp4")
	writeFile(t, mp4, 1024)

	report, err := Check(Paths{
		MP4:     mp4,
		RunLog:  filepath.Join(dir, "run.log.json"),
		Summary: filepath.Join(dir, "summary.csv"),
	}, 1000)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Warnings) != 2 {
		t.Errorf("warnings = %v, want 2 entries", report.Warnings)
	}
}

func TestCheckAllPresent(t *testing.T) {
	dir := t.TempDir()
	mp4 := filepath.Join(dir, "demo.mp4")
	runlog := filepath.Join(dir, "run.log.json")
	summary := filepath.Join(dir, "summary.csv")
	writeFile(t, mp4, 2048)
	writeFile(t, runlog, 10)
	writeFile(t, summary, 10)

	report, err := Check(Paths{MP4: mp4, RunLog: runlog, Summary: summary}, 1000)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", report.Warnings)
	}
}

func TestCheckUpload(t *testing.T) {
	dir := t.TempDir()

	// Missing file → FILE_NOT_FOUND, exit 1
	err := CheckUpload(filepath.Join(dir, "gone.mp4"), 0)
	if !perrors.Is(err, perrors.ErrCodeFileNotFound) || perrors.ExitCode(err) != 1 {
		t.Errorf("missing: err=%v exit=%d", err, perrors.ExitCode(err))
	}

	// Undersized → OUTPUT_UNDERSIZED, exit 3
	small := filepath.Join(dir, "small.mp4")
	writeFile(t, small, MinMP4Bytes-1)
	err = CheckUpload(small, 0)
	if !perrors.Is(err, perrors.ErrCodeOutputUndersized) || perrors.ExitCode(err) != 3 {
		t.Errorf("undersized: err=%v exit=%d", err, perrors.ExitCode(err))
	}

	// At the threshold → ok
	ok := filepath.Join(dir, "ok.mp4")
	writeFile(t, ok, MinMP4Bytes)
	if err := CheckUpload(ok, 0); err != nil {
		t.Errorf("threshold file should pass: %v", err)
	}
}

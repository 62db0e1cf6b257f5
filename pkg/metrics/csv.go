package metrics

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
)

// WriteFramesCSV writes frame labels as a two-column CSV
// (frame,view), creating parent directories as needed.
func WriteFramesCSV(path string, rows []FrameLabel) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"frame", "view"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{strconv.Itoa(row.Frame), row.View}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadFramesCSV loads a renderer-produced frames.csv. The second
// return value is false when the file is missing, has the wrong
// header, or contains no usable rows; callers then fall back to
// deriving labels from the pose timeline.
func ReadFramesCSV(path string) ([]FrameLabel, bool) {
	f, err := os.Open(path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil || len(header) < 2 || header[0] != "frame" || header[1] != "view" {
		return nil, false
	}

	var rows []FrameLabel
	for {
		record, err := r.Read()
		if err != nil {
			break
		}
		if len(record) < 2 {
			continue
		}
		frame, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		view := record[1]
		if view == "" {
			view = "None"
		}
		rows = append(rows, FrameLabel{Frame: frame, View: view})
	}

	if len(rows) == 0 {
		return nil, false
	}
	return rows, true
}

// Views extracts the label sequence from frame rows.
func Views(rows []FrameLabel) []string {
	seq := make([]string, len(rows))
	for i, row := range rows {
		seq[i] = row.View
	}
	return seq
}

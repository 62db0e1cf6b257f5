// Package prbody renders the review comment posted on a pull request.
//
// The body is deliberately lightweight: a signed video URL, the
// renderer's summary metrics as a table, and thumbnail names. No
// artifacts are attached; the external storage URL carries the video.
package prbody

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Pair is one summary metric, order preserved from the CSV.
type Pair struct {
	Key   string
	Value string
}

// ReadSummary reads a renderer summary.csv. The file is a key,value
// table with a header row. A missing or empty file yields no pairs,
// not an error, so the body degrades to just the video link.
func ReadSummary(path string) ([]Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := records
	if len(records[0]) >= 2 && strings.EqualFold(records[0][0], "key") {
		rows = records[1:]
	}

	var pairs []Pair
	for _, rec := range rows {
		if len(rec) < 2 || rec[0] == "" {
			continue
		}
		pairs = append(pairs, Pair{Key: rec[0], Value: rec[1]})
	}
	return pairs, nil
}

// ListThumbnails returns the sorted PNG file names in a thumbnails
// directory. A missing directory yields none.
func ListThumbnails(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".png") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// Build renders the markdown body. videoURL is required; summary and
// thumbs may be empty.
func Build(videoURL string, summary []Pair, thumbs []string) string {
	var b strings.Builder

	b.WriteString("## Results\n\n")
	fmt.Fprintf(&b, "- **Video (signed URL, ~48h):** [%s](%s)\n\n", videoURL, videoURL)

	if len(summary) > 0 {
		b.WriteString("### Metrics\n\n")
		b.WriteString("| key | value |\n")
		b.WriteString("| --- | ----- |\n")
		for _, p := range summary {
			fmt.Fprintf(&b, "| %s | %s |\n", p.Key, p.Value)
		}
		b.WriteString("\n")
	}

	if len(thumbs) > 0 {
		b.WriteString("### Thumbnails\n\n")
		for _, name := range thumbs {
			fmt.Fprintf(&b, "- %s\n", name)
		}
		b.WriteString("\n")
	}

	b.WriteString("> Lightest-weight mode: no CI artifacts, only a signed URL into external storage.\n")
	return b.String()
}

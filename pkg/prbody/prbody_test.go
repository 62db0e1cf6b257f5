package prbody

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadSummary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")
	content := "key,value\nexp_name,phaseA_demo\nduration_s,3.0\nviews_front,40\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ReadSummary(path)
	if err != nil {
		t.Fatalf("ReadSummary: %v", err)
	}
	if len(pairs) != 3 {
		t.Fatalf("pairs = %v", pairs)
	}
	if pairs[0].Key != "exp_name" || pairs[0].Value != "phaseA_demo" {
		t.Errorf("first pair = %+v", pairs[0])
	}
	// Order preserved from the file
	if pairs[2].Key != "views_front" {
		t.Errorf("order not preserved: %v", pairs)
	}
}

func TestReadSummaryMissingFile(t *testing.T) {
	pairs, err := ReadSummary(filepath.Join(t.TempDir(), "absent.csv"))
	if err != nil {
		t.Fatalf("missing summary should not error: %v", err)
	}
	if pairs != nil {
		t.Errorf("pairs = %v, want none", pairs)
	}
}

func TestReadSummaryNoHeader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "summary.csv")
	if err := os.WriteFile(path, []byte("elapsed_s,1.2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	pairs, err := ReadSummary(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 1 || pairs[0].Key != "elapsed_s" {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestListThumbnails(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "notes.txt", "c.PNG"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	thumbs := ListThumbnails(dir)
	want := []string{"a.png", "b.png", "c.PNG"}
	if len(thumbs) != len(want) {
		t.Fatalf("thumbs = %v", thumbs)
	}
	for i := range want {
		if thumbs[i] != want[i] {
			t.Errorf("thumbs[%d] = %q, want %q", i, thumbs[i], want[i])
		}
	}

	if got := ListThumbnails(filepath.Join(dir, "missing")); got != nil {
		t.Errorf("missing dir thumbs = %v", got)
	}
}

func TestBuild(t *testing.T) {
	url := "https://signed.example.com/v.mp4?sig=abc"
	body := Build(url, []Pair{{"exp_name", "phaseA_demo"}}, []string{"t0.png"})

	for _, want := range []string{
		"## Results",
		"[" + url + "](" + url + ")",
		"### Metrics",
		"| exp_name | phaseA_demo |",
		"### Thumbnails",
		"- t0.png",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildMinimal(t *testing.T) {
	body := Build("https://x", nil, nil)
	if strings.Contains(body, "### Metrics") || strings.Contains(body, "### Thumbnails") {
		t.Errorf("empty sections should be omitted:\n%s", body)
	}
	if !strings.Contains(body, "## Results") {
		t.Errorf("results header missing:\n%s", body)
	}
}

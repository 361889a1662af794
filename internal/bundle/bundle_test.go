package bundle

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
)

type testPlan struct {
	JobID    string   `json:"jobId"`
	Variants []string `json:"variants"`
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()

	rendered := filepath.Join(dir, "finale.mp4")
	payload := []byte("not really video, but enough to verify content")
	if err := os.WriteFile(rendered, payload, 0o644); err != nil {
		t.Fatalf("write rendered file: %v", err)
	}

	outPath := filepath.Join(dir, "trailer-abc.zip")
	plan := testPlan{JobID: "trailer-abc", Variants: []string{"opening-act", "finale"}}
	if err := Write(outPath, plan, []File{{Name: "finale.mp4", Path: rendered}}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	zr, err := zip.OpenReader(outPath)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer zr.Close()

	entries := make(map[string][]byte)
	for _, f := range zr.File {
		if f.Method != zipMethodZstd {
			t.Errorf("entry %s method = %d, want zstd (%d)", f.Name, f.Method, zipMethodZstd)
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = data
	}

	planData, ok := entries["plan.json"]
	if !ok {
		t.Fatal("bundle missing plan.json")
	}
	var got testPlan
	if err := json.Unmarshal(planData, &got); err != nil {
		t.Fatalf("decode plan.json: %v", err)
	}
	if got.JobID != "trailer-abc" || len(got.Variants) != 2 {
		t.Errorf("plan = %+v", got)
	}

	if string(entries["finale.mp4"]) != string(payload) {
		t.Error("rendered file content mismatch after round trip")
	}
}

func TestWrite_MissingFile(t *testing.T) {
	dir := t.TempDir()
	err := Write(filepath.Join(dir, "out.zip"), testPlan{}, []File{{Name: "x.mp4", Path: filepath.Join(dir, "nope.mp4")}})
	if err == nil {
		t.Error("want error for missing rendered file")
	}
}

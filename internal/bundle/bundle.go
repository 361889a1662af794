// Package bundle packages a finished trailer job into a single downloadable
// ZIP: the plan JSON for every variant plus any rendered trailer files.
// Entries are compressed with Zstandard inside the ZIP container.
package bundle

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog/log"
)

// zipMethodZstd is the ZIP compression method ID for Zstandard (APPNOTE
// 6.3.7). Level 12 maps to SpeedBestCompression in klauspost/compress; the
// plan JSON shrinks well and the mp4 payloads pass through nearly untouched
// either way.
const zipMethodZstd uint16 = 93

func init() {
	zip.RegisterCompressor(zipMethodZstd, func(w io.Writer) (io.WriteCloser, error) {
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(12)))
	})
	zip.RegisterDecompressor(zipMethodZstd, func(r io.Reader) io.ReadCloser {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return io.NopCloser(r)
		}
		return zr.IOReadCloser()
	})
}

// File is one rendered artifact to include alongside the plan.
type File struct {
	// Name is the entry name inside the archive, e.g. "finale.mp4".
	Name string
	// Path is the local file to read.
	Path string
}

// Write creates a ZIP at outPath containing plan.json (the JSON encoding of
// plan) and the given rendered files.
func Write(outPath string, plan any, files []File) error {
	f, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)

	planEntry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   "plan.json",
		Method: zipMethodZstd,
	})
	if err != nil {
		return fmt.Errorf("create plan.json entry: %w", err)
	}
	enc := json.NewEncoder(planEntry)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plan); err != nil {
		return fmt.Errorf("encode plan.json: %w", err)
	}

	for _, bf := range files {
		if err := addFile(zw, bf); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize bundle: %w", err)
	}

	log.Info().Str("bundle", outPath).Int("files", len(files)).Msg("Result bundle written")
	return nil
}

func addFile(zw *zip.Writer, bf File) error {
	src, err := os.Open(bf.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", bf.Path, err)
	}
	defer src.Close()

	entry, err := zw.CreateHeader(&zip.FileHeader{
		Name:   filepath.Base(bf.Name),
		Method: zipMethodZstd,
	})
	if err != nil {
		return fmt.Errorf("create entry %s: %w", bf.Name, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("write entry %s: %w", bf.Name, err)
	}
	return nil
}

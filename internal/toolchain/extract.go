package toolchain

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// maxBinarySize bounds extraction to guard against a malformed archive.
const maxBinarySize = 512 << 20 // 512 MiB

// extractTarGz pulls the uv executable out of a tar.gz release archive and
// writes it to dest with the executable bit set. Release archives nest the
// binary under a platform directory (e.g. uv-x86_64-unknown-linux-gnu/uv),
// so entries are matched by base name.
func extractTarGz(data []byte, dest string) error {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	want := strings.TrimSuffix(filepath.Base(dest), ".exe")

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read tar entry: %w", err)
		}

		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		if filepath.Base(hdr.Name) != want {
			continue
		}

		return writeBinary(dest, io.LimitReader(tr, maxBinarySize))
	}

	return fmt.Errorf("binary %q not found in archive", want)
}

// extractZip pulls the uv executable out of a zip release archive.
func extractZip(data []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open zip archive: %w", err)
	}

	want := filepath.Base(dest)

	for _, f := range zr.File {
		if filepath.Base(f.Name) != want {
			continue
		}

		rc, openErr := f.Open()
		if openErr != nil {
			return fmt.Errorf("open zip entry %s: %w", f.Name, openErr)
		}

		writeErr := writeBinary(dest, io.LimitReader(rc, maxBinarySize))
		rc.Close()

		return writeErr
	}

	return fmt.Errorf("binary %q not found in archive", want)
}

// writeBinary writes the binary to a temp file in the destination directory
// and renames it into place, so a partial download never leaves a broken
// executable at the final path.
func writeBinary(dest string, r io.Reader) error {
	dir := filepath.Dir(dest)

	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write binary: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Chmod(tmpName, 0o755); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("set executable bit: %w", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("move binary into place: %w", err)
	}

	return nil
}

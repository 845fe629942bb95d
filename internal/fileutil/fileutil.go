// Package fileutil copies files into the watched directory so the watcher
// only ever sees complete files.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// partialSuffix marks in-progress copies. It is never a registered extension,
// so the watcher ignores these files.
const partialSuffix = ".partial"

// CopyFileVerified streams src to dst and checks size and SHA-256 of what was
// written. dst is removed on mismatch.
func CopyFileVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHash := sha256.New()
	dstHash := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHash), io.TeeReader(in, srcHash))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// PlaceInDir copies src into dir under its own base name. The copy is written
// beside the target with a .partial suffix and renamed into place, so the
// final name appears atomically. An existing target is not overwritten.
func PlaceInDir(src, dir string) (string, error) {
	target := filepath.Join(dir, filepath.Base(src))
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("%s already exists", target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("check target: %w", err)
	}

	partial := target + partialSuffix
	if err := CopyFileVerified(src, partial); err != nil {
		return "", fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := os.Rename(partial, target); err != nil {
		_ = os.Remove(partial)
		return "", fmt.Errorf("move into place: %w", err)
	}
	return target, nil
}

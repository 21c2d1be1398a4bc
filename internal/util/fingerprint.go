package util

import (
	"fmt"
	"hash/crc32"
	"io"
	"os"
)

const fingerprintWindow = 2048

// CalculateFileFingerprint returns a CRC32 over the first and last 2KB of a
// file. Trace files only grow at the tail and carry their identity in the
// head, so the two windows catch both rewrites and appends.
func CalculateFileFingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return "", err
	}
	return FingerprintAt(file, stat.Size())
}

// FingerprintAt fingerprints the first size bytes of r the way
// CalculateFileFingerprint fingerprints a whole file.
func FingerprintAt(r io.ReaderAt, size int64) (string, error) {
	window := int64(fingerprintWindow)
	if size < window {
		window = size
	}

	crc := crc32.NewIEEE()
	if _, err := io.Copy(crc, io.NewSectionReader(r, 0, window)); err != nil {
		return "", err
	}
	if size > window {
		tail := size - window
		if tail < window {
			tail = window
		}
		if _, err := io.Copy(crc, io.NewSectionReader(r, tail, size-tail)); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%08x", crc.Sum32()), nil
}

package probe

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Fingerprint computes the MD5 of the entire file at path, streamed in
// chunkBytes-sized reads so memory use stays flat regardless of file
// size. The result is 32 lowercase hex characters.
func Fingerprint(path string, chunkBytes int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open for fingerprint: %w", err)
	}
	defer f.Close()

	if chunkBytes <= 0 {
		chunkBytes = 1 << 20
	}

	h := md5.New()
	buf := make([]byte, chunkBytes)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			if _, err := h.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("hash write: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("read for fingerprint: %w", readErr)
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

package artifact

import (
	"crypto/sha256"
	"fmt"
	"os"
	"strings"
)

// Fingerprint identifies the current contents of the chunk database without
// hashing the whole file: path, size, and mtime change whenever the offline
// build replaces it. Derived indexes store the fingerprint they were built
// from so a database swapped while the server was down is detected on the
// next load.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", path, err)
	}
	h := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())))
	return fmt.Sprintf("%x", h), nil
}

func readFingerprint(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func writeFingerprint(path, fp string) error {
	return os.WriteFile(path, []byte(fp+"\n"), 0644)
}

package vtgfx

import (
	"encoding/base64"
	"os"
	"path/filepath"
)

// base64DecodeStd decodes standard base64, tolerating payloads a strict
// decoder would reject over padding: callers routinely omit or mis-pad the
// trailing `=` when streaming chunks, so we try the strict decoder first and
// fall back to the unpadded variant.
func base64DecodeStd(cleaned []byte) ([]byte, error) {
	if out, err := base64.StdEncoding.DecodeString(string(cleaned)); err == nil {
		return out, nil
	}
	return base64.RawStdEncoding.DecodeString(string(cleaned))
}

// readSharedMemory resolves a POSIX shared-memory object by name. Go has no
// shm_open binding in the standard library; on Linux shm_open(3) objects are
// simply files under /dev/shm, so we read and unlink there directly rather
// than reaching for cgo.
func readSharedMemory(name string) ([]byte, error) {
	path := filepath.Join("/dev/shm", filepath.Base(name))
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errIO("failed to read shared memory %q: %v", name, err)
	}
	_ = os.Remove(path)
	return b, nil
}

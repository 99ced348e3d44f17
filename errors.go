package vtgfx

import "fmt"

// kittyError is a protocol-surface error reported back to the PTY using the
// Kitty graphics convention `CODE:message` (see spec §6, §7). It is also a
// normal Go error so decode paths can return it with fmt.Errorf("%w", ...)
// like any other failure.
type kittyError struct {
	code    string
	message string
}

func (e *kittyError) Error() string {
	if e.message == "" {
		return e.code
	}
	return fmt.Sprintf("%s:%s", e.code, e.message)
}

// errNotFound builds the ENOENT:... response used when Frame/Compose/
// Animation targets an image id the registry doesn't hold.
func errNotFound(format string, args ...any) *kittyError {
	return &kittyError{code: "ENOENT", message: fmt.Sprintf(format, args...)}
}

// errPermission builds the EPERM:... response used when a remote
// transmission medium (File/TempFile/SharedMemory) is used while
// allow_kitty_remote is false.
func errPermission(format string, args ...any) *kittyError {
	return &kittyError{code: "EPERM", message: fmt.Sprintf(format, args...)}
}

// errBadData builds a generic EINVAL:... response for malformed payloads
// (bad base64, size mismatch, unknown format).
func errBadData(format string, args ...any) *kittyError {
	return &kittyError{code: "EINVAL", message: fmt.Sprintf(format, args...)}
}

// errIO builds an EIO:... response for external I/O failures (file/shm).
func errIO(format string, args ...any) *kittyError {
	return &kittyError{code: "EIO", message: fmt.Sprintf(format, args...)}
}

//go:build !linux && !windows && !darwin && !freebsd

package security

import (
	"encoding/binary"
	"os"
)

// No thread handle is reachable without cgo here, so legacy libraries are
// refused by Context.Init.
func perThreadIdentity() bool { return false }

// threadHandle falls back to the process ID. Every thread shares it.
func threadHandle() []byte {
	return binary.NativeEndian.AppendUint64(nil, uint64(os.Getpid()))
}

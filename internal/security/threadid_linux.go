package security

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

func perThreadIdentity() bool { return true }

func threadHandle() []byte {
	return binary.NativeEndian.AppendUint32(nil, uint32(unix.Gettid()))
}

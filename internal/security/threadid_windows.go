package security

import (
	"encoding/binary"

	"golang.org/x/sys/windows"
)

func perThreadIdentity() bool { return true }

func threadHandle() []byte {
	return binary.NativeEndian.AppendUint32(nil, windows.GetCurrentThreadId())
}

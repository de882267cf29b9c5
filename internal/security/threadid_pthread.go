//go:build darwin || freebsd

package security

import (
	"encoding/binary"
	"sync"

	"github.com/ebitengine/purego"
)

var pthreadSelf = sync.OnceValue(func() uintptr {
	sym, err := purego.Dlsym(purego.RTLD_DEFAULT, "pthread_self")
	if err != nil {
		return 0
	}
	return sym
})

func perThreadIdentity() bool { return pthreadSelf() != 0 }

// threadHandle returns the bytes of pthread_self(), a pointer-sized handle.
func threadHandle() []byte {
	fn := pthreadSelf()
	if fn == 0 {
		return nil
	}
	h, _, _ := purego.SyscallN(fn)
	return binary.NativeEndian.AppendUint64(nil, uint64(h))
}

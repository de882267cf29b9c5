package security

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
)

// MaxLocks bounds the lock count a library may ask for. 1.0.x asks for 41.
const MaxLocks = 1 << 12

// ErrLockAlloc is returned when the mutex array for a legacy library cannot
// be set up. Startup must abort.
var ErrLockAlloc = errors.New("security: failed to allocate crypto library mutexes")

// LockArray owns the static mutexes a legacy library indexes through its
// locking callback. Its length never changes after construction.
type LockArray struct {
	mu []sync.Mutex

	lib       cryptolib.LegacyThreading
	installed bool

	acquired  atomic.Uint64
	contended atomic.Uint64
}

// NewLockArray allocates one mutex per lock the library requires, plus one.
// Index 0 is unused by OpenSSL but initialised anyway so every index the
// library might hand us is valid.
func NewLockArray(required int) (*LockArray, error) {
	if required < 1 || required > MaxLocks {
		return nil, fmt.Errorf("%w: library requires %d locks", ErrLockAlloc, required)
	}
	return &LockArray{mu: make([]sync.Mutex, required+1)}, nil
}

// Len returns the number of mutex slots.
func (a *LockArray) Len() int { return len(a.mu) }

// Acquire locks slot n.
func (a *LockArray) Acquire(n int) {
	m := &a.mu[n]
	if !m.TryLock() {
		a.contended.Add(1)
		m.Lock()
	}
	a.acquired.Add(1)
}

// Release unlocks slot n.
func (a *LockArray) Release(n int) {
	a.mu[n].Unlock()
}

// Callback implements cryptolib.LockingFunc.
func (a *LockArray) Callback(mode, n int) {
	if mode&cryptolib.LockModeLock != 0 {
		a.Acquire(n)
	} else {
		a.Release(n)
	}
}

// Stats returns the total and contended acquisition counts.
func (a *LockArray) Stats() (acquired, contended uint64) {
	return a.acquired.Load(), a.contended.Load()
}

// Install hands the thread-identity and locking callbacks to lib. Every
// slot already exists, so the library can call back immediately.
func (a *LockArray) Install(lib cryptolib.LegacyThreading) {
	a.lib = lib
	a.installed = true
	lib.SetThreadCallbacks(ThreadID, a.Callback)
}

// Close removes the callbacks from the library and only then drops the
// mutexes. Calling it twice is harmless.
func (a *LockArray) Close() {
	if a.installed {
		a.lib.SetThreadCallbacks(nil, nil)
		a.installed = false
		a.lib = nil
	}
	a.mu = nil
}

// ThreadID implements cryptolib.ThreadIDFunc: the calling OS thread's
// platform handle folded into a uint64.
func ThreadID() uint64 {
	return idFromHandle(threadHandle())
}

// idFromHandle reinterprets the handle bytes as a native-endian integer.
// Longer handles are truncated, shorter ones zero-extended.
func idFromHandle(h []byte) uint64 {
	var buf [8]byte
	copy(buf[:], h)
	return binary.NativeEndian.Uint64(buf[:])
}

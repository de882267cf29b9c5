// Package libtest provides an in-memory cryptolib.Library that records the
// calls made against it.
package libtest

import (
	"slices"
	"sync"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
)

// Call names recorded by Library.
const (
	CallLoadErrorStrings    = "LoadErrorStrings"
	CallLibraryInit         = "LibraryInit"
	CallAddAllAlgorithms    = "AddAllAlgorithms"
	CallLoadBuiltinEngines  = "LoadBuiltinEngines"
	CallAddDigestSHA256     = "AddDigestSHA256"
	CallInitCrypto          = "InitCrypto"
	CallLoadConfig          = "LoadConfig"
	CallNumLocks            = "NumLocks"
	CallSetCallbacks        = "SetThreadCallbacks"
	CallClearCallbacks      = "ClearThreadCallbacks"
	CallDefaultRANDEngine   = "DefaultRANDEngine"
	CallUnregisterRAND      = "UnregisterRAND"
	CallReleaseEngine       = "ReleaseEngine"
	CallRegisterAllComplete = "RegisterAllComplete"
	CallRemoveThreadState   = "RemoveThreadState"
	CallEngineCleanup       = "EngineCleanup"
	CallUnloadConfigModules = "UnloadConfigModules"
	CallFreeErrorStrings    = "FreeErrorStrings"
	CallEVPCleanup          = "EVPCleanup"
	CallCleanupExData       = "CleanupExData"
)

// Library is a fake cryptolib.Library. Configure the exported fields before
// handing it to the code under test.
type Library struct {
	Ver cryptolib.Version
	// Locks is what NumLocks reports.
	Locks int
	// RANDEngine is the ID of the default RAND engine; empty means none.
	RANDEngine string
	// SHA256Default reports whether sha256 is registered without help.
	SHA256Default bool
	// InitCryptoErr is returned by InitCrypto.
	InitCryptoErr error
	// ProbeOnClear makes the deregistration call lock and unlock every
	// index through the outgoing callback before dropping it, the way a
	// concurrent library call could.
	ProbeOnClear bool

	mu        sync.Mutex
	calls     []string
	initFlags cryptolib.InitFlags
	idCB      cryptolib.ThreadIDFunc
	lockCB    cryptolib.LockingFunc
	randGone  bool
	sha256    bool
	liveRefs  int
	probeErr  any
}

// New returns a fake reporting version v with the lock count of a typical
// 1.0.x build.
func New(v cryptolib.Version) *Library {
	return &Library{Ver: v, Locks: 41}
}

func (l *Library) record(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

// Calls returns the recorded call names in order.
func (l *Library) Calls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.calls)
}

// Count returns how many times name was called.
func (l *Library) Count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		if c == name {
			n++
		}
	}
	return n
}

// Reset forgets the recorded calls.
func (l *Library) Reset() {
	l.mu.Lock()
	l.calls = nil
	l.mu.Unlock()
}

// Callbacks returns the currently installed thread callbacks.
func (l *Library) Callbacks() (cryptolib.ThreadIDFunc, cryptolib.LockingFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.idCB, l.lockCB
}

// InitFlags returns the flags passed to the last InitCrypto call.
func (l *Library) InitFlags() cryptolib.InitFlags {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.initFlags
}

// RANDUnregistered reports whether the default RAND engine was removed.
func (l *Library) RANDUnregistered() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.RANDEngine != "" && l.randGone
}

// LiveEngineRefs reports engine references handed out and not released.
func (l *Library) LiveEngineRefs() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.liveRefs
}

// ProbePanic returns what the probe recovered from, if anything.
func (l *Library) ProbePanic() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.probeErr
}

func (l *Library) Version() cryptolib.Version { return l.Ver }

func (l *Library) LoadErrorStrings()   { l.record(CallLoadErrorStrings) }
func (l *Library) LibraryInit()        { l.record(CallLibraryInit) }
func (l *Library) AddAllAlgorithms()   { l.record(CallAddAllAlgorithms) }
func (l *Library) LoadBuiltinEngines() { l.record(CallLoadBuiltinEngines) }

func (l *Library) HasDigest(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name != "sha256" {
		return true
	}
	return l.SHA256Default || l.sha256
}

func (l *Library) AddDigestSHA256() {
	l.record(CallAddDigestSHA256)
	l.mu.Lock()
	l.sha256 = true
	l.mu.Unlock()
}

func (l *Library) InitCrypto(flags cryptolib.InitFlags) error {
	l.record(CallInitCrypto)
	l.mu.Lock()
	l.initFlags = flags
	l.mu.Unlock()
	return l.InitCryptoErr
}

func (l *Library) LoadConfig() { l.record(CallLoadConfig) }

func (l *Library) NumLocks() int {
	l.record(CallNumLocks)
	return l.Locks
}

func (l *Library) SetThreadCallbacks(id cryptolib.ThreadIDFunc, lock cryptolib.LockingFunc) {
	if id == nil && lock == nil {
		l.record(CallClearCallbacks)
		l.mu.Lock()
		old := l.lockCB
		l.mu.Unlock()
		if l.ProbeOnClear && old != nil {
			l.probe(old)
		}
		l.mu.Lock()
		l.idCB, l.lockCB = nil, nil
		l.mu.Unlock()
		return
	}
	l.record(CallSetCallbacks)
	l.mu.Lock()
	l.idCB, l.lockCB = id, lock
	l.mu.Unlock()
}

func (l *Library) probe(lock cryptolib.LockingFunc) {
	defer func() {
		if r := recover(); r != nil {
			l.mu.Lock()
			l.probeErr = r
			l.mu.Unlock()
		}
	}()
	for n := 0; n < l.Locks; n++ {
		lock(cryptolib.LockModeLock|cryptolib.LockModeWrite, n)
		lock(cryptolib.LockModeUnlock|cryptolib.LockModeWrite, n)
	}
}

func (l *Library) DefaultRANDEngine() *cryptolib.Engine {
	l.record(CallDefaultRANDEngine)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.RANDEngine == "" || l.randGone {
		return nil
	}
	l.liveRefs++
	return cryptolib.NewEngine(l.RANDEngine, 1)
}

func (l *Library) UnregisterRAND(*cryptolib.Engine) {
	l.record(CallUnregisterRAND)
	l.mu.Lock()
	l.randGone = true
	l.mu.Unlock()
}

func (l *Library) ReleaseEngine(*cryptolib.Engine) {
	l.record(CallReleaseEngine)
	l.mu.Lock()
	l.liveRefs--
	l.mu.Unlock()
}

func (l *Library) RegisterAllComplete() { l.record(CallRegisterAllComplete) }
func (l *Library) RemoveThreadState()   { l.record(CallRemoveThreadState) }

// EngineCleanup drops every engine; the next init loads them afresh.
func (l *Library) EngineCleanup() {
	l.record(CallEngineCleanup)
	l.mu.Lock()
	l.randGone = false
	l.mu.Unlock()
}

func (l *Library) UnloadConfigModules() { l.record(CallUnloadConfigModules) }
func (l *Library) FreeErrorStrings()    { l.record(CallFreeErrorStrings) }

// EVPCleanup forgets every explicitly added digest.
func (l *Library) EVPCleanup() {
	l.record(CallEVPCleanup)
	l.mu.Lock()
	l.sha256 = false
	l.mu.Unlock()
}

func (l *Library) CleanupExData() { l.record(CallCleanupExData) }

var _ cryptolib.Library = (*Library)(nil)

package cryptolib

import "errors"

// ErrUnsupportedPlatform is returned by Open where no dlopen binding exists.
var ErrUnsupportedPlatform = errors.New("cryptolib: no OpenSSL binding for this platform")

// Lock mode bits passed to a LockingFunc (CRYPTO_LOCK and friends).
const (
	LockModeLock   = 1
	LockModeUnlock = 2
	LockModeRead   = 4
	LockModeWrite  = 8
)

// InitFlags are the OPENSSL_INIT_* options for the combined init call.
type InitFlags uint64

const (
	InitLoadCryptoStrings InitFlags = 0x00000002
	InitAddAllCiphers     InitFlags = 0x00000004
	InitAddAllDigests     InitFlags = 0x00000008
	InitLoadConfig        InitFlags = 0x00000040
	InitEngineRDRand      InitFlags = 0x00000200
	InitEngineDynamic     InitFlags = 0x00000400
	InitEngineCryptodev   InitFlags = 0x00001000
	InitEngineCAPI        InitFlags = 0x00002000
	InitEnginePadlock     InitFlags = 0x00004000

	InitEngineAllBuiltin = InitEngineRDRand | InitEngineDynamic |
		InitEngineCryptodev | InitEngineCAPI | InitEnginePadlock
)

// ThreadIDFunc returns an identifier for the calling OS thread.
type ThreadIDFunc func() uint64

// LockingFunc acquires (mode&LockModeLock != 0) or releases lock n.
type LockingFunc func(mode, n int)

// Engine is a reference to a loaded engine. A non-nil Engine returned by
// the library holds a reference that must be given back with
// EngineTable.ReleaseEngine.
type Engine struct {
	ID     string
	handle uintptr
}

// NewEngine returns an Engine for a binding-specific handle.
func NewEngine(id string, handle uintptr) *Engine {
	return &Engine{ID: id, handle: handle}
}

// Handle returns the binding-specific handle.
func (e *Engine) Handle() uintptr { return e.handle }

// Versioner reports the runtime library version.
type Versioner interface {
	Version() Version
}

// EngineTable is the subset of the engine API used during initialization.
type EngineTable interface {
	// DefaultRANDEngine returns the engine currently providing the default
	// RAND method, or nil if the built-in method is in use.
	DefaultRANDEngine() *Engine
	UnregisterRAND(e *Engine)
	ReleaseEngine(e *Engine)
	// RegisterAllComplete registers every capability of every loaded
	// engine so the remaining ones stay discoverable.
	RegisterAllComplete()
}

// LegacyThreading is the callback-based locking contract of pre-1.1.0
// libraries.
type LegacyThreading interface {
	// NumLocks reports how many static locks the library indexes.
	NumLocks() int
	// SetThreadCallbacks installs both callbacks. Passing nil for both
	// removes them.
	SetThreadCallbacks(id ThreadIDFunc, lock LockingFunc)
}

// Library is everything the security package needs from the linked
// cryptographic library.
type Library interface {
	Versioner
	EngineTable
	LegacyThreading

	// Legacy initialization steps.
	LoadErrorStrings()
	LibraryInit()
	AddAllAlgorithms()
	LoadBuiltinEngines()
	HasDigest(name string) bool
	AddDigestSHA256()

	// InitCrypto is the combined init call of modern libraries.
	InitCrypto(flags InitFlags) error

	// LoadConfig reads the library's default configuration file.
	LoadConfig()

	// Legacy teardown steps.
	RemoveThreadState()
	EngineCleanup()
	UnloadConfigModules()
	FreeErrorStrings()
	EVPCleanup()
	CleanupExData()
}

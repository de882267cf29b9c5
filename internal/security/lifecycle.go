package security

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
)

// ErrLibraryInit is returned when a modern library rejects its combined
// init call.
var ErrLibraryInit = errors.New("security: crypto library initialization failed")

// ErrThreadIdentity is returned when a legacy library needs per-thread IDs
// and this platform cannot supply them.
var ErrThreadIdentity = errors.New("security: no per-thread identity on this platform for a legacy crypto library")

// hasThreadIdentity is replaced in tests.
var hasThreadIdentity = perThreadIdentity

// rdrandEngine is the hardware RNG engine that must not be the default
// randomness source.
const rdrandEngine = "rdrand"

// Context owns the process-wide state of the linked crypto library. The
// embedding application holds the only instance.
//
// Init and Teardown are not safe for concurrent use: call them from a
// single goroutine, before workers start and after they have stopped.
type Context struct {
	lib   cryptolib.Library
	model cryptolib.ThreadModel
	log   *slog.Logger

	initialized atomic.Bool
	locks       *LockArray
}

// NewContext returns an uninitialized context for lib.
func NewContext(lib cryptolib.Library, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		lib:   lib,
		model: lib.Version().ThreadModel(),
		log:   logger,
	}
}

// Init loads error strings, algorithms and engines once. Calling it again
// before Teardown does nothing.
//
// On legacy libraries the lock array is allocated and installed before
// anything else touches the library; ErrLockAlloc and ErrThreadIdentity
// are fatal.
func (c *Context) Init() error {
	if c.initialized.Load() {
		return nil
	}

	switch c.model {
	case cryptolib.Legacy:
		if !hasThreadIdentity() {
			c.log.Error("FATAL: cannot identify threads for legacy libssl", "version", c.lib.Version().String())
			return ErrThreadIdentity
		}
		locks, err := NewLockArray(c.lib.NumLocks())
		if err != nil {
			c.log.Error("FATAL: failed to set up SSL mutexes", "error", err)
			return err
		}
		locks.Install(c.lib)
		c.locks = locks

		c.lib.LoadErrorStrings()
		c.lib.LibraryInit()
		c.lib.AddAllAlgorithms()
		c.lib.LoadBuiltinEngines() // AES-NI, and rdrand too

		// Needed for WiMAX certificates; 1.0.x does not add it by default.
		if !c.lib.HasDigest("sha256") {
			c.lib.AddDigestSHA256()
		}
	default:
		if err := c.lib.InitCrypto(cryptolib.InitLoadConfig | cryptolib.InitEngineAllBuiltin); err != nil {
			return fmt.Errorf("%w: %w", ErrLibraryInit, err)
		}
	}

	c.disableRDRand()
	c.lib.RegisterAllComplete()

	c.initialized.Store(true)
	c.lib.LoadConfig()

	c.log.Debug("crypto library initialized",
		"version", c.lib.Version().String(), "threading", c.model.String(), "locks", c.lockCount())
	return nil
}

// disableRDRand stops rdrand from being the default RAND source.
func (c *Context) disableRDRand() {
	e := c.lib.DefaultRANDEngine()
	if e == nil {
		return
	}
	if e.ID == rdrandEngine {
		c.lib.UnregisterRAND(e)
		c.log.Debug("unregistered rdrand as default RAND engine")
	}
	c.lib.ReleaseEngine(e)
}

// Teardown releases everything Init set up so a later Init starts afresh.
// No other goroutine may be using the library.
//
// Modern libraries free their state from an exit handler, so only the
// flag is reset for them.
func (c *Context) Teardown() {
	if !c.initialized.Load() {
		return
	}

	if c.model == cryptolib.Legacy {
		c.lib.RemoveThreadState()
		c.lib.EngineCleanup()
		c.lib.UnloadConfigModules()
		c.lib.FreeErrorStrings()
		c.lib.EVPCleanup()
		c.lib.CleanupExData()

		if c.locks != nil {
			c.locks.Close()
			c.locks = nil
		}
	}

	c.initialized.Store(false)
	c.log.Debug("crypto library torn down")
}

// Initialized reports whether Init has succeeded since the last Teardown.
func (c *Context) Initialized() bool { return c.initialized.Load() }

// Model returns the threading model of the linked library.
func (c *Context) Model() cryptolib.ThreadModel { return c.model }

// Version returns the linked library's runtime version.
func (c *Context) Version() cryptolib.Version { return c.lib.Version() }

// Locks returns the installed lock array, or nil on modern libraries and
// while uninitialized.
func (c *Context) Locks() *LockArray { return c.locks }

func (c *Context) lockCount() int {
	if c.locks == nil {
		return 0
	}
	return c.locks.Len()
}

//go:build linux || darwin || freebsd

package cryptolib

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/purego"
)

// knownCryptoLibs is searched in order when no path is configured,
// newest generation first. Only versioned dylibs are listed: macOS aborts
// the process on an unversioned load of its /usr/lib stub.
var knownCryptoLibs = [...]string{
	"libcrypto.so.3",
	"libcrypto.so.1.1",
	"libcrypto.so.1.0.0",
	"libcrypto.so.10",
	"libcrypto.so",
	"/opt/homebrew/opt/openssl@3/lib/libcrypto.3.dylib",
	"/usr/local/opt/openssl@3/lib/libcrypto.3.dylib",
	"/opt/local/lib/libcrypto.3.dylib",
	"libcrypto.3.dylib",
	"/opt/homebrew/opt/openssl@1.1/lib/libcrypto.1.1.dylib",
	"/usr/local/opt/openssl@1.1/lib/libcrypto.1.1.dylib",
	"libcrypto.1.1.dylib",
}

// OpenSSL is a Library backed by a dlopen'd libcrypto (and, for legacy
// versions, libssl).
type OpenSSL struct {
	crypto  uintptr
	ssl     uintptr
	path    string
	version Version

	// Present in every generation.
	versionNum func() uintptr

	// Modern only.
	initCrypto func(opts uint64, settings uintptr) int32

	// Engine API; absent in no-engine builds.
	engineGetDefaultRAND   func() uintptr
	engineGetID            func(e uintptr) string
	engineUnregisterRAND   func(e uintptr)
	engineFree             func(e uintptr) int32
	engineRegisterComplete func() int32
	engineLoadBuiltin      func()
	engineCleanup          func()

	opensslConfig func(name uintptr)

	// Legacy only.
	sslLoadErrorStrings  func()
	sslLibraryInit       func() int32
	addAllAlgorithms     func()
	evpGetDigestByName   func(name string) uintptr
	evpAddDigest         func(md uintptr) int32
	evpSHA256            func() uintptr
	cryptoNumLocks       func() int32
	cryptoSetIDCallback  func(cb uintptr)
	cryptoSetLockingCB   func(cb uintptr)
	errRemoveThreadState func(tid uintptr)
	confModulesUnload    func(all int32)
	errFreeStrings       func()
	evpCleanup           func()
	cleanupAllExData     func()
}

// Open loads the library named by cfg, or the first known library name that
// dlopen resolves.
func Open(cfg Config) (*OpenSSL, error) {
	l := &OpenSSL{}

	candidates := knownCryptoLibs[:]
	if cfg.CryptoPath != "" {
		candidates = []string{cfg.CryptoPath}
	}
	var errs []error
	for _, name := range candidates {
		h, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		l.crypto, l.path = h, name
		break
	}
	if l.crypto == 0 {
		return nil, fmt.Errorf("cryptolib: load libcrypto: %w", errors.Join(errs...))
	}

	if !l.optional(l.crypto, &l.versionNum, "OpenSSL_version_num") &&
		!l.optional(l.crypto, &l.versionNum, "SSLeay") {
		l.Close() //nolint:errcheck
		return nil, fmt.Errorf("cryptolib: %s exports no version function", l.path)
	}
	l.version = Version(l.versionNum())

	l.optional(l.crypto, &l.engineGetDefaultRAND, "ENGINE_get_default_RAND")
	l.optional(l.crypto, &l.engineGetID, "ENGINE_get_id")
	l.optional(l.crypto, &l.engineUnregisterRAND, "ENGINE_unregister_RAND")
	l.optional(l.crypto, &l.engineFree, "ENGINE_free")
	l.optional(l.crypto, &l.engineRegisterComplete, "ENGINE_register_all_complete")
	l.optional(l.crypto, &l.opensslConfig, "OPENSSL_config")

	if l.version.ThreadModel() == Modern {
		if !l.optional(l.crypto, &l.initCrypto, "OPENSSL_init_crypto") {
			l.Close() //nolint:errcheck
			return nil, fmt.Errorf("cryptolib: %s (%s) exports no OPENSSL_init_crypto", l.path, l.version)
		}
		return l, nil
	}

	if err := l.bindLegacy(cfg); err != nil {
		l.Close() //nolint:errcheck
		return nil, err
	}
	return l, nil
}

func (l *OpenSSL) bindLegacy(cfg Config) error {
	sslPath := cfg.SSLPath
	if sslPath == "" {
		sslPath = strings.Replace(l.path, "libcrypto", "libssl", 1)
	}
	h, err := purego.Dlopen(sslPath, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return fmt.Errorf("cryptolib: load libssl: %w", err)
	}
	l.ssl = h

	// Legacy builds always export these; a missing symbol panics in
	// RegisterLibFunc, which is what we want for a broken install.
	purego.RegisterLibFunc(&l.sslLoadErrorStrings, l.ssl, "SSL_load_error_strings")
	purego.RegisterLibFunc(&l.sslLibraryInit, l.ssl, "SSL_library_init")
	purego.RegisterLibFunc(&l.addAllAlgorithms, l.crypto, "OPENSSL_add_all_algorithms_noconf")
	purego.RegisterLibFunc(&l.evpGetDigestByName, l.crypto, "EVP_get_digestbyname")
	purego.RegisterLibFunc(&l.evpAddDigest, l.crypto, "EVP_add_digest")
	purego.RegisterLibFunc(&l.evpSHA256, l.crypto, "EVP_sha256")
	purego.RegisterLibFunc(&l.cryptoNumLocks, l.crypto, "CRYPTO_num_locks")
	purego.RegisterLibFunc(&l.cryptoSetIDCallback, l.crypto, "CRYPTO_set_id_callback")
	purego.RegisterLibFunc(&l.cryptoSetLockingCB, l.crypto, "CRYPTO_set_locking_callback")
	purego.RegisterLibFunc(&l.errRemoveThreadState, l.crypto, "ERR_remove_thread_state")
	purego.RegisterLibFunc(&l.confModulesUnload, l.crypto, "CONF_modules_unload")
	purego.RegisterLibFunc(&l.errFreeStrings, l.crypto, "ERR_free_strings")
	purego.RegisterLibFunc(&l.evpCleanup, l.crypto, "EVP_cleanup")
	purego.RegisterLibFunc(&l.cleanupAllExData, l.crypto, "CRYPTO_cleanup_all_ex_data")
	l.optional(l.crypto, &l.engineLoadBuiltin, "ENGINE_load_builtin_engines")
	l.optional(l.crypto, &l.engineCleanup, "ENGINE_cleanup")
	return nil
}

// optional binds fptr to name if the symbol exists.
func (l *OpenSSL) optional(handle uintptr, fptr any, name string) bool {
	sym, err := purego.Dlsym(handle, name)
	if err != nil || sym == 0 {
		return false
	}
	purego.RegisterFunc(fptr, sym)
	return true
}

// Path returns the file name the library was loaded from.
func (l *OpenSSL) Path() string { return l.path }

// Close unloads the library handles. It must not be called while the
// library may still be in use.
func (l *OpenSSL) Close() error {
	var errs []error
	if l.ssl != 0 {
		errs = append(errs, purego.Dlclose(l.ssl))
		l.ssl = 0
	}
	if l.crypto != 0 {
		errs = append(errs, purego.Dlclose(l.crypto))
		l.crypto = 0
	}
	return errors.Join(errs...)
}

func (l *OpenSSL) Version() Version { return l.version }

func (l *OpenSSL) LoadErrorStrings() { l.sslLoadErrorStrings() }

func (l *OpenSSL) LibraryInit() { l.sslLibraryInit() }

func (l *OpenSSL) AddAllAlgorithms() { l.addAllAlgorithms() }

func (l *OpenSSL) LoadBuiltinEngines() {
	if l.engineLoadBuiltin != nil {
		l.engineLoadBuiltin()
	}
}

func (l *OpenSSL) HasDigest(name string) bool {
	if l.evpGetDigestByName == nil {
		return true
	}
	return l.evpGetDigestByName(name) != 0
}

func (l *OpenSSL) AddDigestSHA256() { l.evpAddDigest(l.evpSHA256()) }

func (l *OpenSSL) InitCrypto(flags InitFlags) error {
	if l.initCrypto(uint64(flags), 0) != 1 {
		return fmt.Errorf("cryptolib: OPENSSL_init_crypto(%#x) failed", uint64(flags))
	}
	return nil
}

func (l *OpenSSL) LoadConfig() {
	if l.opensslConfig != nil {
		l.opensslConfig(0)
	}
}

func (l *OpenSSL) DefaultRANDEngine() *Engine {
	if l.engineGetDefaultRAND == nil || l.engineGetID == nil {
		return nil
	}
	h := l.engineGetDefaultRAND()
	if h == 0 {
		return nil
	}
	return NewEngine(l.engineGetID(h), h)
}

func (l *OpenSSL) UnregisterRAND(e *Engine) {
	if e != nil && l.engineUnregisterRAND != nil {
		l.engineUnregisterRAND(e.Handle())
	}
}

func (l *OpenSSL) ReleaseEngine(e *Engine) {
	if e != nil && l.engineFree != nil {
		l.engineFree(e.Handle())
	}
}

func (l *OpenSSL) RegisterAllComplete() {
	if l.engineRegisterComplete != nil {
		l.engineRegisterComplete()
	}
}

func (l *OpenSSL) NumLocks() int {
	if l.cryptoNumLocks == nil {
		return 0
	}
	return int(l.cryptoNumLocks())
}

// SetThreadCallbacks points the library at process-wide trampolines that
// forward to id and lock. The library is told to drop the trampolines
// before the Go callbacks are cleared.
func (l *OpenSSL) SetThreadCallbacks(id ThreadIDFunc, lock LockingFunc) {
	if l.cryptoSetIDCallback == nil || l.cryptoSetLockingCB == nil {
		return
	}
	if id == nil && lock == nil {
		l.cryptoSetIDCallback(0)
		l.cryptoSetLockingCB(0)
		activeThreadID.Store(nil)
		activeLocking.Store(nil)
		return
	}

	activeThreadID.Store(&id)
	activeLocking.Store(&lock)
	idCB, lockCB := trampolines()
	l.cryptoSetIDCallback(idCB)
	l.cryptoSetLockingCB(lockCB)
}

func (l *OpenSSL) RemoveThreadState() { l.errRemoveThreadState(0) }

func (l *OpenSSL) EngineCleanup() {
	if l.engineCleanup != nil {
		l.engineCleanup()
	}
}

func (l *OpenSSL) UnloadConfigModules() { l.confModulesUnload(1) }

func (l *OpenSSL) FreeErrorStrings() { l.errFreeStrings() }

func (l *OpenSSL) EVPCleanup() { l.evpCleanup() }

func (l *OpenSSL) CleanupExData() { l.cleanupAllExData() }

// purego callbacks are never freed, so exactly one pair is created per
// process and re-pointed at whatever Go functions are installed.
var (
	trampolineOnce sync.Once
	idTrampoline   uintptr
	lockTrampoline uintptr

	activeThreadID atomic.Pointer[ThreadIDFunc]
	activeLocking  atomic.Pointer[LockingFunc]
)

func trampolines() (uintptr, uintptr) {
	trampolineOnce.Do(func() {
		idTrampoline = purego.NewCallback(func() uintptr {
			if fn := activeThreadID.Load(); fn != nil && *fn != nil {
				return uintptr((*fn)())
			}
			return 0
		})
		// void (*)(int mode, int n, const char *file, int line)
		lockTrampoline = purego.NewCallback(func(mode, n, _, _ uintptr) {
			if fn := activeLocking.Load(); fn != nil && *fn != nil {
				(*fn)(int(int32(mode)), int(int32(n)))
			}
		})
	})
	return idTrampoline, lockTrampoline
}

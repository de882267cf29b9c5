// Package cryptolib describes the process-wide OpenSSL library that the
// server links against: its version numbering, the two threading models it
// has shipped with, and the initialization and teardown entry points the
// security package drives.
//
// The concrete binding loads libcrypto and libssl with dlopen through purego,
// so the server builds without cgo. Tests use the in-memory fake in the
// libtest subpackage.
package cryptolib

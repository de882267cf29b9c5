//go:build !(linux || darwin || freebsd)

package cryptolib

// OpenSSL is unavailable on this platform.
type OpenSSL struct {
	Library
}

// Open always fails with ErrUnsupportedPlatform.
func Open(Config) (*OpenSSL, error) {
	return nil, ErrUnsupportedPlatform
}

// Path returns the empty string.
func (l *OpenSSL) Path() string { return "" }

// Close is a no-op.
func (l *OpenSSL) Close() error { return nil }

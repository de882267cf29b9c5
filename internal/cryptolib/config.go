package cryptolib

// Config selects the shared libraries to load. Empty paths fall back to a
// search of well-known library names.
type Config struct {
	CryptoPath string
	// SSLPath defaults to CryptoPath with "libcrypto" replaced by "libssl".
	// Only loaded for legacy versions.
	SSLPath string
}

// Command tlsguard loads the system OpenSSL libraries and runs the same
// version gate and init/teardown sequence a server performs at startup.
//
// Usage:
//
//	tlsguard check                 refuse known-vulnerable versions
//	tlsguard init [--hold]         gate, initialize, report, tear down
//	tlsguard defects               list the compiled-in defect table
//	tlsguard audit                 show and verify recorded decisions
//	tlsguard version
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

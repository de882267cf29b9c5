// Package security guards the process-wide crypto library the server links
// against:
//
//   - Version gate: refuse to start on libssl releases with known critical
//     defects unless the operator has acknowledged them
//   - Lifecycle: one-time initialization and teardown of error strings,
//     algorithms and engines, with rdrand removed as the default RAND source
//   - Legacy lock bridge: the mutex array and thread callbacks that
//     pre-1.1.0 libraries require from the application
//
// # Startup order
//
// The embedding application runs the gate, then Init, before any worker
// goroutine touches the library:
//
//	if err := security.CheckVersion(cfg.Security.AllowVulnerableOpenSSL, lib, logger); err != nil {
//		return err
//	}
//	ctx := security.NewContext(lib, logger)
//	if err := ctx.Init(); err != nil {
//		return err
//	}
//	defer ctx.Teardown()
//
// Teardown must only run once every worker has stopped.
package security

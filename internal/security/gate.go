package security

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
)

// OverrideToken skips the version check entirely.
const OverrideToken = "yes"

// AckSetting is the configuration key operators set to acknowledge a
// defect once the library has been verified as patched.
const AckSetting = "security.allow_vulnerable_openssl"

// ErrVulnerable is matched by every *VulnerableError.
var ErrVulnerable = errors.New("security: crypto library version has known critical defects")

// VulnerableError lists the defects affecting the running library.
type VulnerableError struct {
	Version cryptolib.Version
	Defects []Defect
}

func (e *VulnerableError) Error() string {
	ids := make([]string, len(e.Defects))
	for i, d := range e.Defects {
		ids[i] = d.ID
	}
	return fmt.Sprintf("security: refusing to start with libssl %s: %s", e.Version, strings.Join(ids, ", "))
}

// Unwrap lets errors.Is match ErrVulnerable.
func (e *VulnerableError) Unwrap() error { return ErrVulnerable }

// Gate refuses library versions that fall inside a known-defective range.
type Gate struct {
	defects []Defect
	log     *slog.Logger
}

// NewGate returns a gate over defects, which must be ordered newest first.
func NewGate(defects []Defect, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{defects: defects, log: logger}
}

// Check compares the running library version against the defect table.
//
// ack is the newest defect ID the operator has verified as fixed, or
// OverrideToken. Acknowledging the newest entry implies every older one
// was acknowledged before it, so the scan is skipped. Otherwise every
// matching defect is logged and returned in a *VulnerableError.
//
// Check must run before the library is initialized.
func (g *Gate) Check(ack string, lib cryptolib.Versioner) error {
	if len(g.defects) == 0 || ack == OverrideToken || ack == g.defects[0].ID {
		return nil
	}

	v := lib.Version()
	var bad []Defect
	for _, d := range g.defects {
		if !d.Contains(v) {
			continue
		}
		g.log.Error("refusing to start with vulnerable libssl",
			"version", v.String(), "range", d.Range())
		g.log.Error("security advisory", "id", d.ID, "name", d.Name)
		g.log.Error(d.Comment)
		bad = append(bad, d)
	}
	if len(bad) == 0 {
		return nil
	}

	g.log.Info(fmt.Sprintf("once you have verified libssl has been correctly patched, set %s = '%s'",
		AckSetting, g.defects[0].ID))
	return &VulnerableError{Version: v, Defects: bad}
}

// CheckVersion runs Check against KnownDefects.
func CheckVersion(ack string, lib cryptolib.Versioner, logger *slog.Logger) error {
	return NewGate(KnownDefects, logger).Check(ack, lib)
}

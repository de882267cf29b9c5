package cryptolib

import "fmt"

// Version is a library version number as reported at runtime, in OpenSSL's
// 0xMNNFFPPS encoding. Larger values are always later releases, so versions
// compare with the ordinary integer operators.
type Version uint64

// modernThreading is the first release (1.1.0-dev) that manages its own
// locking internally.
const modernThreading Version = 0x10100000

// Major returns the M field.
func (v Version) Major() uint { return uint(v>>28) & 0xf }

// Minor returns the NN field.
func (v Version) Minor() uint { return uint(v>>20) & 0xff }

// Fix returns the FF field. Always zero for 3.x releases.
func (v Version) Fix() uint { return uint(v>>12) & 0xff }

// Patch returns the PP field: the patch letter for 1.x and earlier
// (1 = 'a'), the patch number for 3.x.
func (v Version) Patch() uint { return uint(v>>4) & 0xff }

// Status returns the S field: 0 for development snapshots, 1-14 for betas
// and 15 for releases. 3.x always reports 0.
func (v Version) Status() uint { return uint(v) & 0xf }

// ThreadModel reports which threading contract this version implements.
func (v Version) ThreadModel() ThreadModel {
	if v < modernThreading {
		return Legacy
	}
	return Modern
}

// String renders the version the way OpenSSL names its releases,
// e.g. "1.0.1f", "1.0.2-beta2", "1.1.0-dev" or "3.0.13".
func (v Version) String() string {
	if v.Major() >= 3 {
		return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
	}

	s := fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Fix())
	if p := v.Patch(); p > 0 {
		if p > 26 {
			s += "z"
			p -= 26
		}
		s += string(rune('a' + p - 1))
	}

	switch st := v.Status(); {
	case st == 0:
		s += "-dev"
	case st < 0xf:
		s += fmt.Sprintf("-beta%d", st)
	}
	return s
}

// FormatRange renders an inclusive version range for diagnostics.
func FormatRange(low, high Version) string {
	return low.String() + " to " + high.String()
}

// ThreadModel distinguishes library generations by who provides locking.
type ThreadModel int

const (
	// Modern libraries (1.1.0 and later) are internally thread-safe and
	// need a single combined init call.
	Modern ThreadModel = iota
	// Legacy libraries require the application to supply mutexes and
	// thread identity through callbacks.
	Legacy
)

func (m ThreadModel) String() string {
	switch m {
	case Modern:
		return "modern"
	case Legacy:
		return "legacy"
	default:
		return "unknown"
	}
}

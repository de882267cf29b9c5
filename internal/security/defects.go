package security

import "github.com/avaropoint/tlsguard/internal/cryptolib"

// Defect describes a range of library releases with a known critical flaw.
type Defect struct {
	Low  cryptolib.Version // first affected version
	High cryptolib.Version // last affected version
	ID   string            // CVE or other advisory ID
	Name string            // as known in the media
	// Comment tells the operator where to find more information.
	Comment string
}

// Contains reports whether v falls inside the inclusive range.
func (d Defect) Contains(v cryptolib.Version) bool {
	return v >= d.Low && v <= d.High
}

// Range renders the affected versions.
func (d Defect) Range() string {
	return cryptolib.FormatRange(d.Low, d.High)
}

// KnownDefects lists critical libssl defects, newest first.
var KnownDefects = []Defect{
	{
		Low:     0x10001000, // 1.0.1
		High:    0x1000106f, // 1.0.1f
		ID:      "CVE-2014-0160",
		Name:    "Heartbleed",
		Comment: "For more information see http://heartbleed.com",
	},
}

// RecognizedAcks returns every acknowledgment value that has a defined
// effect for the given table: the override token and each defect ID.
// Only the override token and the newest ID skip the check.
func RecognizedAcks(defects []Defect) []string {
	out := make([]string, 0, len(defects)+1)
	out = append(out, OverrideToken)
	for _, d := range defects {
		out = append(out, d.ID)
	}
	return out
}

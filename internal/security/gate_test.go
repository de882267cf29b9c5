package security

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaropoint/tlsguard/internal/cryptolib"
	"github.com/avaropoint/tlsguard/internal/cryptolib/libtest"
)

type fixedVersion cryptolib.Version

func (v fixedVersion) Version() cryptolib.Version { return cryptolib.Version(v) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestGate_Check(t *testing.T) {
	table := []Defect{{Low: 100, High: 200, ID: "D1", Name: "first", Comment: "see D1"}}

	tests := []struct {
		name    string
		ack     string
		version cryptolib.Version
		wantErr bool
	}{
		{"newest id acknowledged inside range", "D1", 150, false},
		{"newest id acknowledged outside range", "D1", 50, false},
		{"override inside range", "yes", 150, false},
		{"override outside range", "yes", 250, false},
		{"unrecognized inside range", "other", 150, true},
		{"unrecognized below range", "other", 50, false},
		{"unrecognized above range", "other", 250, false},
		{"low bound is inclusive", "other", 100, true},
		{"high bound is inclusive", "other", 200, true},
		{"just below low", "other", 99, false},
		{"just above high", "other", 201, false},
		{"empty ack", "", 150, true},
		{"ack is case sensitive", "YES", 150, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(table, discardLogger())
			err := g.Check(tt.ack, fixedVersion(tt.version))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrVulnerable)
			var verr *VulnerableError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.version, verr.Version)
			require.Len(t, verr.Defects, 1)
			assert.Equal(t, "D1", verr.Defects[0].ID)
		})
	}
}

func TestGate_ScansWholeTable(t *testing.T) {
	table := []Defect{
		{Low: 300, High: 400, ID: "D3", Name: "third"},
		{Low: 100, High: 200, ID: "D2", Name: "second"},
		{Low: 150, High: 160, ID: "D1", Name: "first"},
	}
	g := NewGate(table, discardLogger())

	// Acknowledging an older entry does not skip the scan.
	err := g.Check("D2", fixedVersion(155))
	var verr *VulnerableError
	require.ErrorAs(t, err, &verr)
	ids := []string{verr.Defects[0].ID, verr.Defects[1].ID}
	assert.Equal(t, []string{"D2", "D1"}, ids)

	assert.NoError(t, g.Check("D3", fixedVersion(155)))
}

func TestGate_EmptyTable(t *testing.T) {
	g := NewGate(nil, discardLogger())
	assert.NoError(t, g.Check("anything", fixedVersion(1)))
}

func TestGate_Diagnostics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	err := CheckVersion("no", libtest.New(0x1000105f), logger)
	require.ErrorIs(t, err, ErrVulnerable)

	out := buf.String()
	assert.Contains(t, out, "version=1.0.1e")
	assert.Contains(t, out, `range="1.0.1-dev to 1.0.1f"`)
	assert.Contains(t, out, "id=CVE-2014-0160")
	assert.Contains(t, out, "name=Heartbleed")
	assert.Contains(t, out, "heartbleed.com")
	assert.Contains(t, out, "security.allow_vulnerable_openssl = 'CVE-2014-0160'")
	assert.Contains(t, err.Error(), "1.0.1e")
}

func TestCheckVersion_KnownDefects(t *testing.T) {
	tests := []struct {
		version cryptolib.Version
		wantErr bool
	}{
		{0x1000006f, false}, // 1.0.0f
		{0x10001000, true},  // 1.0.1-dev
		{0x1000101f, true},  // 1.0.1a
		{0x1000106f, true},  // 1.0.1f
		{0x1000107f, false}, // 1.0.1g
		{0x30000020, false}, // 3.0.2
	}
	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			err := CheckVersion("no", fixedVersion(tt.version), discardLogger())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrVulnerable)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecognizedAcks(t *testing.T) {
	assert.Equal(t, []string{"yes", "CVE-2014-0160"}, RecognizedAcks(KnownDefects))
}

func TestRecognizedAcks_WholeTable(t *testing.T) {
	table := []Defect{{ID: "CVE-B"}, {ID: "CVE-A"}}
	assert.Equal(t, []string{"yes", "CVE-B", "CVE-A"}, RecognizedAcks(table))
	assert.Equal(t, []string{"yes"}, RecognizedAcks(nil))
}

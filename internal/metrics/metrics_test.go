package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avaropoint/tlsguard/internal/cryptolib/libtest"
	"github.com/avaropoint/tlsguard/internal/security"
)

func gather(t *testing.T, src Source) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(src)))
	mfs, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(mfs))
	for _, mf := range mfs {
		out[mf.GetName()] = mf
	}
	return out
}

func value(mf *dto.MetricFamily) float64 {
	m := mf.GetMetric()[0]
	if m.GetCounter() != nil {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestCollector_Legacy(t *testing.T) {
	lib := libtest.New(0x1000215f)
	ctx := security.NewContext(lib, nil)
	require.NoError(t, ctx.Init())
	defer ctx.Teardown()

	ctx.Locks().Callback(1, 3)
	ctx.Locks().Callback(2, 3)

	mfs := gather(t, ctx)
	assert.Equal(t, 1.0, value(mfs["tlsguard_library_initialized"]))
	assert.Equal(t, float64(lib.Locks+1), value(mfs["tlsguard_locks"]))
	assert.Equal(t, 1.0, value(mfs["tlsguard_lock_acquisitions_total"]))
	assert.Equal(t, 0.0, value(mfs["tlsguard_lock_contentions_total"]))

	labels := map[string]string{}
	for _, lp := range mfs["tlsguard_library_info"].GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, "1.0.2u", labels["version"])
	assert.Equal(t, "legacy", labels["threading"])
}

func TestCollector_ModernUninitialized(t *testing.T) {
	ctx := security.NewContext(libtest.New(0x30000020), nil)

	mfs := gather(t, ctx)
	assert.Equal(t, 0.0, value(mfs["tlsguard_library_initialized"]))
	assert.Equal(t, 0.0, value(mfs["tlsguard_locks"]))
	assert.Equal(t, 0.0, value(mfs["tlsguard_lock_acquisitions_total"]))
}

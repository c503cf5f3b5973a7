package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_Observe(t *testing.T) {
	reg := NewRegistry(prometheus.NewRegistry())

	reg.ObserveAdmission("smpp", ResultAllowed)
	reg.ObserveAdmission("smpp", ResultAllowed)
	reg.ObserveAdmission("smpp", ResultDenied)
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Admissions.WithLabelValues("smpp", ResultAllowed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Admissions.WithLabelValues("smpp", ResultDenied)))

	reg.ObservePause("smpp")
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FlowPaused.WithLabelValues("smpp")))
	reg.ObserveResume("smpp")
	assert.Equal(t, 0.0, testutil.ToFloat64(reg.FlowPaused.WithLabelValues("smpp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FlowResumes.WithLabelValues("smpp")))

	reg.ObserveDispatch("r1", "outbound", "transport1", nil)
	reg.ObserveDispatch("r1", "outbound", "transport1", errors.New("broker down"))
	assert.Equal(t, 2.0, testutil.ToFloat64(reg.Dispatches.WithLabelValues("r1", "outbound", "transport1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DispatchErrors.WithLabelValues("r1", "outbound", "transport1")))

	reg.ObserveDrop("r1", "no_fallback")
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Dropped.WithLabelValues("r1", "no_fallback")))

	reg.ObserveWindow("smpp", 7)
	assert.Equal(t, 7.0, testutil.ToFloat64(reg.WindowTokens.WithLabelValues("smpp")))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	var reg *Registry

	assert.NotPanics(t, func() {
		reg.ObserveAdmission("c", ResultAllowed)
		reg.ObserveWindow("c", 1)
		reg.ObservePause("c")
		reg.ObserveResume("c")
		reg.ObserveUnpauseCheck("c", "room")
		reg.ObserveDispatch("r", "inbound", "e", nil)
		reg.ObserveDrop("r", "x")
	})
}

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ChatTurns.Inc()
	m.Uploads.WithLabelValues("pdf").Inc()
	m.Uploads.WithLabelValues("pdf").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ChatTurns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Uploads.WithLabelValues("pdf")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewPanicsOnDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

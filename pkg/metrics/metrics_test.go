package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	r := prometheus.NewRegistry()
	Register(r)
	Register(r)
	assert.Equal(t, prometheus.Registerer(r), GetRegisterer())

	before := testutil.ToFloat64(RegistryLookups.WithLabelValues(HitLabel))
	RegistryLookups.WithLabelValues(HitLabel).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(RegistryLookups.WithLabelValues(HitLabel)))

	families, err := r.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["stackjson_registry_lookups_total"])
}

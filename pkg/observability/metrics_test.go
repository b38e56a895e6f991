package observability_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/pkg/observability"
)

func TestConversionMetrics_WriteTextfile(t *testing.T) {
	t.Parallel()

	cm, err := observability.NewConversionMetrics()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, cm.Shutdown(context.Background())) })

	cm.Record(context.Background(), observability.ConversionStats{
		Parsed:      3,
		Emitted:     2,
		OutputBytes: 64,
		Skipped:     map[string]int{observability.ReasonDuplicate: 1},
	})

	path := filepath.Join(t.TempDir(), "convsym.prom")
	require.NoError(t, cm.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, "convsym_symbols_parsed_total")
	assert.Contains(t, text, "convsym_symbols_emitted_total")
	assert.Contains(t, text, "convsym_output_bytes_total")
	assert.Contains(t, text, `reason="duplicate"`)
	assert.Contains(t, text, `reason="capacity"`)
}

func TestConversionMetrics_Gather(t *testing.T) {
	t.Parallel()

	cm, err := observability.NewConversionMetrics()
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, cm.Shutdown(context.Background())) })

	cm.Record(context.Background(), observability.ConversionStats{Parsed: 5})

	families, err := cm.Gatherer().Gather()
	require.NoError(t, err)

	values := map[string]float64{}

	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() != nil {
				values[mf.GetName()] += m.GetCounter().GetValue()
			}
		}
	}

	assert.InDelta(t, 5, values["convsym_symbols_parsed_total"], 0)
}

func TestConversionMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var cm *observability.ConversionMetrics

	assert.NotPanics(t, func() {
		cm.Record(context.Background(), observability.ConversionStats{Parsed: 1})
	})
	assert.NoError(t, cm.Shutdown(context.Background()))
}

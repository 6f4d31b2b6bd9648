package oom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateHugepages(t *testing.T) {
	lines := []string{
		"Node 0 hugepages_total=1 hugepages_free=0 hugepages_surp=0 hugepages_size=1048576kB",
		"Node 0 hugepages_total=512 hugepages_free=256 hugepages_surp=0 hugepages_size=2048kB",
		"Node 1 hugepages_total=4 hugepages_free=4 hugepages_surp=0 hugepages_size=2048kB",
		"Node 1 hugepages_total=4 hugepages_surp=0",
		"Node 0 DMA free:15360kB min:32kB low:44kB",
	}

	totals := AggregateHugepages(lines)
	require.Len(t, totals.Nodes, 3)
	assert.Equal(t, int64(1048576+512*2048+4*2048), totals.TotalKB)
	assert.Equal(t, int64(1048576+256*2048), totals.UsedKB)
	assert.Equal(t, 1, totals.Nodes[2].NodeID)
	assert.Equal(t, int64(256), totals.Nodes[1].Used())
}

func TestAggregateHugepagesNone(t *testing.T) {
	totals := AggregateHugepages([]string{"Mem-Info:", "free:10"})
	assert.Zero(t, totals.TotalKB)
	assert.Zero(t, totals.UsedKB)
	assert.Empty(t, totals.Nodes)
}

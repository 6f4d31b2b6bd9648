package pageowner

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leptonai/memscope/pkg/units"
)

func TestTopProcesses(t *testing.T) {
	res := parseTestdata(t)

	v := res.TopProcesses(2)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "myapp", v.Rows[0].Name)
	// worker and Unknown tie on pages and count, broken by name
	assert.Equal(t, UnknownProcess, v.Rows[1].Name)
	assert.Equal(t, Stat{Count: 4, Pages: 12}, v.Total, "totals cover the whole aggregate")

	assert.Len(t, res.TopProcesses(0).Rows, 3)
}

func TestTopModulesAndSlabFunctions(t *testing.T) {
	res := parseTestdata(t)

	v := res.TopModules(10)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, "mymod", v.Rows[0].Name)
	assert.Equal(t, Stat{Count: 3, Pages: 10}, v.Total)

	v = res.TopSlabFunctions(1)
	require.Len(t, v.Rows, 1)
	assert.Equal(t, "kmem_cache_alloc", v.Rows[0].Name)
	assert.Equal(t, int64(10), v.Total.Pages)
}

func TestProcessesForModule(t *testing.T) {
	res := parseTestdata(t)

	v := res.ProcessesForModule("nvidia_modeset", 10)
	require.Len(t, v.Rows, 2)
	assert.Equal(t, UnknownProcess, v.Rows[0].Name)
	assert.Equal(t, "worker", v.Rows[1].Name)

	assert.Empty(t, res.ProcessesForModule("absent", 10).Rows)
}

func TestTopCallTraces(t *testing.T) {
	res := parseTestdata(t)

	rows, total := res.TopCallTraces(0, "")
	require.Len(t, rows, 3)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, int64(2), rows[0].Count)
	assert.Equal(t, "worker", rows[0].Trace.FirstProcess)
	assert.Equal(t, Stat{Count: 4, Pages: 12}, total)

	rows, total = res.TopCallTraces(5, "myapp")
	require.Len(t, rows, 2)
	assert.Equal(t, Stat{Count: 2, Pages: 10}, total)
	assert.Equal(t, int64(8), rows[0].Pages, "equal counts are ordered by pages")

	rows, _ = res.TopCallTraces(5, UnknownProcess)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].Count, "filtered counts only cover the process")
}

func TestOrdersAndSlabSplit(t *testing.T) {
	res := parseTestdata(t)

	rows, total := res.Orders()
	require.Len(t, rows, 3)
	assert.Equal(t, []int{0, 1, 3}, []int{rows[0].Order, rows[1].Order, rows[2].Order})
	assert.Equal(t, Stat{Count: 2, Pages: 2}, rows[0].NonSlab)
	assert.Equal(t, Stat{Count: 2, Pages: 10}, total.Slab)
	assert.Equal(t, int64(12), total.Total().Pages)

	split, splitTotal := res.ProcessSlabUsage(10)
	require.Len(t, split, 3)
	assert.Equal(t, "myapp", split[0].Name)
	assert.Equal(t, total, splitTotal)
}

func TestModuleOrders(t *testing.T) {
	res := parseTestdata(t)

	rows, total := res.ModuleOrders("")
	require.Len(t, rows, 2)
	assert.Equal(t, ModuleOrderRow{Module: "mymod", Order: 3, Stat: Stat{Count: 1, Pages: 8}}, rows[0])
	assert.Equal(t, ModuleOrderRow{Module: "nvidia_modeset", Order: 0, Stat: Stat{Count: 2, Pages: 2}}, rows[1])
	assert.Equal(t, Stat{Count: 3, Pages: 10}, total)

	rows, _ = res.ModuleOrders("mymod")
	assert.Len(t, rows, 1)
}

func TestZones(t *testing.T) {
	res := parseTestdata(t)
	rows, total := res.Zones()
	require.Len(t, rows, 1)
	assert.Equal(t, NodeZone{Node: 0, Zone: 2}, rows[0].NodeZone)
	assert.Equal(t, Stat{Count: 2, Pages: 9}, total)
}

func TestRenderViews(t *testing.T) {
	res := parseTestdata(t)

	buf := bytes.NewBuffer(nil)
	require.NoError(t, RenderView(buf, res.TopProcesses(10), units.KiB))
	out := buf.String()
	assert.Contains(t, out, "Top 3 Processes:")
	assert.Contains(t, out, "Memory (kB)")
	assert.Contains(t, out, "myapp")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "48")

	buf.Reset()
	rows, total := res.TopCallTraces(5, "nobody")
	require.NoError(t, RenderCallTraces(buf, rows, total, "nobody", units.GiB))
	assert.Contains(t, buf.String(), "No call traces found for process 'nobody'")

	buf.Reset()
	rows, total = res.TopCallTraces(1, "")
	require.NoError(t, RenderCallTraces(buf, rows, total, "", units.KiB))
	assert.Contains(t, buf.String(), "#1: Seen 2 times, 8.00 kB")
	assert.Contains(t, buf.String(), "nvkms_alloc+0x2c/0x60 [nvidia_modeset]")

	buf.Reset()
	orders, otot := res.Orders()
	require.NoError(t, RenderOrders(buf, orders, otot, units.MiB))
	assert.Contains(t, buf.String(), "Non-Slab Memory (MB)")

	buf.Reset()
	splits, stot := res.ProcessSlabUsage(10)
	require.NoError(t, RenderProcessSlabUsage(buf, splits, stot, units.MiB))
	assert.Contains(t, buf.String(), "worker")

	buf.Reset()
	mo, mtot := res.ModuleOrders("")
	require.NoError(t, RenderModuleOrders(buf, mo, mtot, units.KiB))
	assert.Contains(t, buf.String(), "nvidia_modeset")

	buf.Reset()
	zones, ztot := res.Zones()
	require.NoError(t, RenderZones(buf, zones, ztot, units.KiB))
	assert.Contains(t, buf.String(), "36")
}

func TestRenderIsDeterministic(t *testing.T) {
	render := func() string {
		res := parseTestdata(t)
		buf := bytes.NewBuffer(nil)
		require.NoError(t, RenderView(buf, res.TopProcesses(10), units.GiB))
		require.NoError(t, RenderView(buf, res.TopModules(10), units.GiB))
		rows, total := res.TopCallTraces(5, "")
		require.NoError(t, RenderCallTraces(buf, rows, total, "", units.GiB))
		return buf.String()
	}
	assert.Equal(t, render(), render())
}

func TestRenderSkipped(t *testing.T) {
	res := parseTestdata(t)
	buf := bytes.NewBuffer(nil)
	require.NoError(t, RenderSkipped(buf, res))
	assert.Equal(t, "Total skipped: 3\n - Missing match: 1\n - Incomplete trace: 1\n - Invalid order: 1\n", buf.String())
}

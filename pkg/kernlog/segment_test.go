package kernlog

import (
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentMemInfo(t *testing.T) {
	text := `[    1.000000] Linux version 5.14.0
[  100.000001] Mem-Info:
[  100.000002] active_anon:10 inactive_anon:20
[  100.000003] 1000 pages RAM
[  200.500000] Mem-Info:
[  200.500001] active_anon:30
`
	sections := Collect(text, MemInfoAnchor)
	require.Len(t, sections, 2)

	assert.Equal(t, "mem-info", sections[0].Anchor)
	assert.Equal(t, "Mem-Info:", sections[0].Header)
	assert.True(t, sections[0].Timestamp.HasUptime)
	assert.Equal(t, 100*time.Second+time.Microsecond, sections[0].Timestamp.Uptime)
	assert.Len(t, sections[0].Lines, 3)
	assert.Contains(t, sections[0].Text(), "1000 pages RAM")
	assert.NotContains(t, sections[0].Text(), "active_anon:30")
	assert.False(t, sections[0].Truncated)

	assert.Len(t, sections[1].Lines, 2)
	assert.False(t, sections[1].Truncated, "sections without an end anchor are never truncated")
}

func TestSegmentNoAnchor(t *testing.T) {
	sections := Collect("nothing to see\nhere\n", MemInfoAnchor)
	assert.Empty(t, sections)

	n := 0
	for range Segment("", OOMKillerAnchor) {
		n++
	}
	assert.Zero(t, n)
}

func TestSegmentOOMKillerKeepsTruncatedEvent(t *testing.T) {
	text, err := ReadFile(filepath.Join("testdata", "oom.log"))
	require.NoError(t, err)

	sections := Collect(text, OOMKillerAnchor)
	require.Len(t, sections, 2)

	first := sections[0]
	assert.False(t, first.Truncated)
	assert.Equal(t, "Jan  2 03:04:05", first.Timestamp.Wall)
	assert.Equal(t, "postgres invoked oom-killer: gfp_mask=0x201da, order=0, oom_score_adj=0", first.Header)
	assert.Len(t, first.Lines, 6)
	assert.NotContains(t, first.Text(), "oom_reaper", "lines after the end anchor belong to no section")

	second := sections[1]
	assert.True(t, second.Truncated)
	assert.Len(t, second.Lines, 3)
}

func TestSegmentStartClosesOpenSection(t *testing.T) {
	text := `a invoked oom-killer: gfp_mask=0x0
line
b invoked oom-killer: gfp_mask=0x0
Out of memory: Kill process 1 (b) score 1
`
	sections := Collect(text, OOMKillerAnchor)
	require.Len(t, sections, 2)
	assert.True(t, sections[0].Truncated)
	assert.Equal(t, []string{"a invoked oom-killer: gfp_mask=0x0", "line"}, sections[0].Lines)
	assert.False(t, sections[1].Truncated)
}

func TestSegmentIsRestartable(t *testing.T) {
	seq := Segment("Mem-Info:\nx\nMem-Info:\ny\n", MemInfoAnchor)

	var first, second []string
	for s := range seq {
		first = append(first, s.Text())
	}
	for s := range seq {
		second = append(second, s.Text())
	}
	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestSegmentEarlyBreak(t *testing.T) {
	n := 0
	for range Segment("Mem-Info:\nMem-Info:\nMem-Info:\n", MemInfoAnchor) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestSegmentCustomAnchor(t *testing.T) {
	a := Anchor{Name: "custom", Start: regexp.MustCompile(`^BEGIN`), End: regexp.MustCompile(`^END`)}
	sections := Collect("BEGIN\n1\nEND\nnoise\nBEGIN\n2\n", a)
	require.Len(t, sections, 2)
	assert.Equal(t, []string{"BEGIN", "1", "END"}, sections[0].Lines)
	assert.True(t, sections[1].Truncated)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}

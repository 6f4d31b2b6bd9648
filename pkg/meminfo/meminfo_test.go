package meminfo

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	r, err := Read(filepath.Join("testdata", "proc"))
	require.NoError(t, err)

	assert.Equal(t, int64(16384000), r.MemTotalKB)
	assert.True(t, r.AnonFromField)
	assert.Equal(t, int64(64000), r.UnevictableKB)

	names := make([]string, 0, len(r.Accounted))
	for _, term := range r.Accounted {
		names = append(names, term.Name)
	}
	assert.Equal(t, []string{
		FieldMemFree, FieldBuffers, FieldCached, FieldSwapCached, FieldAnonPages,
		FieldSlab, FieldKernelStack, FieldPageTables, FieldPercpu, FieldHugePages,
	}, names)

	assert.Equal(t, int64(12226576), r.AccountedKB)
	assert.Equal(t, int64(4157424), r.UnaccountedKB)
	assert.Equal(t, r.MemTotalKB, r.AccountedKB+r.UnaccountedKB)
}

func TestReadSynthesizesAnonPages(t *testing.T) {
	r, err := Read(filepath.Join("testdata", "proc-anon"))
	require.NoError(t, err)

	assert.False(t, r.AnonFromField)
	for _, term := range r.Accounted {
		assert.NotEqual(t, FieldAnonPages, term.Name)
		assert.NotEqual(t, FieldUnevictable, term.Name)
	}
	assert.Equal(t, int64(761000), r.AccountedKB)
	assert.Equal(t, int64(239000), r.UnaccountedKB)
}

func TestReadMemTotalMissing(t *testing.T) {
	_, err := Read(filepath.Join("testdata", "proc-nototal"))
	assert.ErrorIs(t, err, ErrMemTotalNotFound)
}

func TestReadMissingDir(t *testing.T) {
	_, err := Read(filepath.Join("testdata", "does-not-exist"))
	assert.Error(t, err)
}

func TestCalculateNoAnon(t *testing.T) {
	total := uint64(100)
	_, err := Calculate(procfs.Meminfo{MemTotal: &total})
	assert.ErrorIs(t, err, ErrAnonPagesNotFound)
}

func TestRender(t *testing.T) {
	r, err := Read(filepath.Join("testdata", "proc"))
	require.NoError(t, err)

	buf := bytes.NewBuffer(nil)
	require.NoError(t, Render(buf, r, false))
	out := buf.String()
	assert.Contains(t, out, "16,384,000")
	assert.Contains(t, out, "4,157,424")
	assert.Contains(t, out, "Unevictable (not subtracted)")
	assert.Contains(t, out, "(3.96 GB)")
	assert.NotContains(t, out, "Formula")

	buf.Reset()
	require.NoError(t, Render(buf, r, true))
	assert.Contains(t, buf.String(), "Unaccounted Memory = MemTotal - (MemFree=4000000 + Buffers=200000")
	assert.Contains(t, buf.String(), "Unaccounted Memory = 16384000 - 12226576")
}

package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		in      string
		want    Unit
		wantErr bool
	}{
		{in: "", want: MiB},
		{in: "P", want: Pages},
		{in: "k", want: KiB},
		{in: "MiB", want: MiB},
		{in: "g", want: GiB},
		{in: "T", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			u, err := ParseUnit(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u)
		})
	}
}

func TestScale(t *testing.T) {
	assert.Equal(t, float64(395000), Scale(395000, 4, Pages))
	assert.Equal(t, float64(1580000), Scale(395000, 4, KiB))
	assert.InDelta(t, 1542.96875, Scale(395000, 4, MiB), 1e-9)
	assert.InDelta(t, 1.506805419921875, Scale(395000, 4, GiB), 1e-12)

	// non-positive page size falls back to 4 KiB
	assert.Equal(t, Scale(10, 4, KiB), Scale(10, 0, KiB))
}

func TestScaleRoundTrip(t *testing.T) {
	for _, pages := range []int64{0, 1, 3, 1023, 262144, 1000000, 123456789} {
		for _, u := range []Unit{Pages, KiB, MiB, GiB} {
			v := Scale(float64(pages), 4, u)
			back := ToPages(v, 4, u)
			diff := back - pages
			if diff < 0 {
				diff = -diff
			}
			assert.LessOrEqual(t, diff, int64(1), "pages=%d unit=%s", pages, u)
		}
	}
}

func TestKBToPages(t *testing.T) {
	assert.Equal(t, int64(2), KBToPages(11, 4))
	assert.Equal(t, int64(1024), KBToPages(4096, 4))
	assert.Equal(t, int64(512), KBToPages(4096, 8))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "1,542.97", Format(395000, 4, MiB))
	assert.Equal(t, "395,000", Format(395000, 4, Pages))
	assert.Equal(t, "1,580,000.00", Format(395000, 4, KiB))
}

func TestScaleBytes(t *testing.T) {
	b := PagesToBytes(8)
	assert.Equal(t, int64(32768), b)
	assert.Equal(t, float64(32), ScaleBytes(b, KiB))
	assert.Equal(t, float64(32)/1024, ScaleBytes(b, MiB))
	assert.Equal(t, "GB", ByteLabel(GiB))
	assert.Equal(t, "kB", ByteLabel(Pages))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "1.0 KiB", HumanBytes(1024))
	assert.Equal(t, "-1.0 KiB", HumanBytes(-1024))
}

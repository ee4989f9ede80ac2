package downloader

import (
	"context"
	"errors"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clean-dependency-project/gamesync/internal/testutil"
)

func TestProbe(t *testing.T) {
	srv := testutil.NewFileServer(t,
		testutil.WithFile("/jdk.zip", make([]byte, 2048)),
		testutil.WithStatus("/forbidden", http.StatusForbidden),
	)
	d := newTestDownloader(t, Options{}, nil)

	res, err := d.Probe(context.Background(), srv.URLFor("/jdk.zip"), 0)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Status)
	assert.Equal(t, int64(2048), res.Size)

	_, err = d.Probe(context.Background(), srv.URLFor("/forbidden"), 0)
	var te *TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusForbidden, te.StatusCode)

	_, err = d.Probe(context.Background(), srv.URLFor("/nothing"), 0)
	assert.True(t, errors.Is(err, ErrTransfer))
}

func TestProbeMirrorsOrder(t *testing.T) {
	first := testutil.NewFileServer(t)
	second := testutil.NewFileServer(t, testutil.WithFile("/pack/mods/a.jar", []byte("jar")))
	third := testutil.NewFileServer(t, testutil.WithFile("/pack/mods/a.jar", []byte("jar")))
	d := newTestDownloader(t, Options{}, nil)

	mirrors := []string{first.URL + "/pack", second.URL + "/pack/", third.URL + "/pack"}
	res, err := d.ProbeMirrors(context.Background(), "mods/a.jar", mirrors)
	require.NoError(t, err)
	assert.Equal(t, second.URL+"/pack/mods/a.jar", res.URL)
	assert.Equal(t, int64(3), res.Size)

	assert.Equal(t, 1, first.Requests("/pack/mods/a.jar"))
	assert.Equal(t, 0, third.Requests("/pack/mods/a.jar"))
}

func TestProbeMirrorsNone(t *testing.T) {
	a := testutil.NewFileServer(t)
	d := newTestDownloader(t, Options{}, nil)

	_, err := d.ProbeMirrors(context.Background(), "x.bin", []string{a.URL})
	assert.True(t, errors.Is(err, ErrNoMirror))

	_, err = d.ProbeMirrors(context.Background(), "x.bin", nil)
	assert.True(t, errors.Is(err, ErrNoMirror))
}

func TestMirrorURL(t *testing.T) {
	tests := []struct {
		mirror, rel, want string
	}{
		{"https://m.example.com", "mods/a.jar", "https://m.example.com/mods/a.jar"},
		{"https://m.example.com/", "/mods/a.jar", "https://m.example.com/mods/a.jar"},
		{"https://m.example.com/base", "a", "https://m.example.com/base/a"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MirrorURL(tt.mirror, tt.rel))
	}
}

func TestSpeedWindow(t *testing.T) {
	w := NewSpeedWindow(5)
	for i := 1; i <= 4; i++ {
		w.Add(float64(i * 100))
		assert.Equal(t, 0.0, w.Speed(), "speed must stay 0 until the window is full")
	}
	w.Add(500)
	assert.Equal(t, 300.0, w.Speed())

	w.Add(1000)
	assert.Equal(t, (200.0+300+400+500+1000)/5, w.Speed())
}

func TestEstimateSeconds(t *testing.T) {
	assert.True(t, math.IsInf(EstimateSeconds(100, 0), 1))
	assert.Equal(t, 2.0, EstimateSeconds(200, 100))
	assert.Equal(t, 0.0, EstimateSeconds(-5, 100))
}

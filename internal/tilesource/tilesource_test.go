package tilesource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackreel/trackreel/internal/config"
	"github.com/trackreel/trackreel/internal/tilecache"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"zoom", "https://tile.example/{zoom}/{x}/{y}.png", "https://tile.example/12/2148/1436.png"},
		{"z", "https://tile.example/{z}/{x}/{y}.png", "https://tile.example/12/2148/1436.png"},
		{"switch", "https://{switch:a,b,c}.tile.example/{z}/{x}/{y}.png", "https://c.tile.example/12/2148/1436.png"},
		{"switch spaces", "https://{switch: a , b}.tile.example/{z}.png", "https://a.tile.example/12.png"},
		{"no placeholders", "https://tile.example/static.png", "https://tile.example/static.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Expand(tt.template, 12, 2148, 1436)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpand_Errors(t *testing.T) {
	_, err := Expand("", 1, 1, 1)
	assert.Error(t, err)
	_, err = Expand("https://{switch:}.example/{z}", 1, 1, 1)
	assert.Error(t, err)
}

func TestExpand_SwitchSpreadsTiles(t *testing.T) {
	seen := map[string]bool{}
	for x := 0; x < 3; x++ {
		u, err := Expand("{switch:a,b,c}", 0, x, 0)
		require.NoError(t, err)
		seen[u] = true
	}
	assert.Len(t, seen, 3)
}

func TestFetch_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/4/8/5.png", r.URL.Path)
		assert.Equal(t, "trackreel/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("tile-bytes"))
	}))
	defer server.Close()

	h := New(config.TileSourceConfig{UserAgent: "trackreel/test", Timeout: time.Second})
	data, err := h.Fetch(context.Background(), tilecache.Key{Zoom: 4, X: 8, Y: 5, Source: server.URL + "/{zoom}/{x}/{y}.png"})
	require.NoError(t, err)
	assert.Equal(t, []byte("tile-bytes"), data)
}

func TestFetch_Status(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	h := New(config.TileSourceConfig{})
	_, err := h.Fetch(context.Background(), tilecache.Key{Source: server.URL + "/{z}/{x}/{y}"})
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestFetch_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, err := New(config.TileSourceConfig{}).Fetch(context.Background(), tilecache.Key{Source: server.URL})
	assert.Error(t, err)
}

func TestFetch_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(config.TileSourceConfig{}).Fetch(ctx, tilecache.Key{Source: server.URL})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetch_ServerDown(t *testing.T) {
	h := New(config.TileSourceConfig{Timeout: time.Second})
	_, err := h.Fetch(context.Background(), tilecache.Key{Source: "http://localhost:59999/{z}"})
	assert.Error(t, err)
}

func TestFetch_AsTileCacheFetcher(t *testing.T) {
	var f tilecache.Fetcher = New(config.TileSourceConfig{}).Fetch
	assert.NotNil(t, f)
}

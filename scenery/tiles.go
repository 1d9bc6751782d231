package scenery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"
)

// TileExt is the suffix of encoded tile files.
const TileExt = ".msgpack.zst"

// TileName is the file name of the one-degree tile whose south-west
// corner is (lat, lon), e.g. n47e008.msgpack.zst.
func TileName(lat, lon int) string {
	ns, ew := 'n', 'e'
	if lat < 0 {
		ns, lat = 's', -lat
	}
	if lon < 0 {
		ew, lon = 'w', -lon
	}
	return fmt.Sprintf("%c%02d%c%03d%s", ns, lat, ew, lon, TileExt)
}

// Tile load outcomes reported to a TileMetricsRecorder.
const (
	TileLoaded  = "loaded"
	TileMissing = "missing"
	TileError   = "error"
)

// TileMetricsRecorder receives tile cache measurements.
type TileMetricsRecorder interface {
	ObserveTileLoad(outcome string, elapsed time.Duration)
	SetTileCache(cached int, hitRatio float64)
}

// TileStoreConfig controls the tile cache.
type TileStoreConfig struct {
	Dir      string
	MaxTiles int
	TTL      time.Duration
	Metrics  TileMetricsRecorder
}

// TileStore serves elevations from one-degree tiles on disk. Decoded tiles
// are kept in an expiring LRU cache; Preload warms it so that queries made
// during a simulation tick stay in memory.
type TileStore struct {
	fsys    fs.FS
	cache   *expirable.LRU[string, *Grid]
	metrics TileMetricsRecorder

	hits, misses atomic.Uint64
}

// NewTileStore opens a tile directory. It does not read any tiles.
func NewTileStore(cfg TileStoreConfig) *TileStore {
	return NewTileStoreFS(os.DirFS(cfg.Dir), cfg)
}

// NewTileStoreFS serves tiles from fsys.
func NewTileStoreFS(fsys fs.FS, cfg TileStoreConfig) *TileStore {
	size := cfg.MaxTiles
	if size <= 0 {
		size = 64
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &TileStore{
		fsys:    fsys,
		cache:   expirable.NewLRU[string, *Grid](size, nil, ttl),
		metrics: cfg.Metrics,
	}
}

// ElevationAt looks the point up in its tile, decoding the tile on first
// use. Points on missing tiles report ok == false.
func (s *TileStore) ElevationAt(lat, lon float64) (float64, string, bool) {
	g, err := s.tile(int(math.Floor(lat)), int(math.Floor(lon)))
	if err != nil || g == nil {
		return 0, MaterialNone, false
	}
	return g.ElevationAt(lat, lon)
}

// Preload decodes every tile touching the box spanned by the two corners.
func (s *TileStore) Preload(ctx context.Context, lat0, lon0, lat1, lon1 float64) error {
	south, north := int(math.Floor(min(lat0, lat1))), int(math.Floor(max(lat0, lat1)))
	west, east := int(math.Floor(min(lon0, lon1))), int(math.Floor(max(lon0, lon1)))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for lat := south; lat <= north; lat++ {
		for lon := west; lon <= east; lon++ {
			eg.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				_, err := s.tile(lat, lon)
				return err
			})
		}
	}
	return eg.Wait()
}

// Cached is the number of tiles currently held, including known-missing
// ones.
func (s *TileStore) Cached() int { return s.cache.Len() }

// HitRatio is the share of tile lookups served from the cache.
func (s *TileStore) HitRatio() float64 {
	h, m := s.hits.Load(), s.misses.Load()
	if h+m == 0 {
		return 0
	}
	return float64(h) / float64(h+m)
}

func (s *TileStore) tile(lat, lon int) (*Grid, error) {
	name := TileName(lat, lon)
	if g, ok := s.cache.Get(name); ok {
		s.hits.Add(1)
		return g, nil
	}
	s.misses.Add(1)

	start := time.Now()
	g, err := s.load(name)
	if s.metrics != nil {
		outcome := TileLoaded
		switch {
		case err != nil:
			outcome = TileError
		case g == nil:
			outcome = TileMissing
		}
		s.metrics.ObserveTileLoad(outcome, time.Since(start))
		s.metrics.SetTileCache(s.cache.Len(), s.HitRatio())
	}
	return g, err
}

func (s *TileStore) load(name string) (*Grid, error) {
	f, err := s.fsys.Open(name)
	if errors.Is(err, fs.ErrNotExist) {
		s.cache.Add(name, nil)
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	defer f.Close()

	g, err := ReadTile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s.cache.Add(name, g)
	return g, nil
}

// ReadTile decodes a zstd-compressed msgpack grid.
func ReadTile(r io.Reader) (*Grid, error) {
	zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	var g Grid
	if err := msgpack.NewDecoder(zr).Decode(&g); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// WriteTile encodes g as a zstd-compressed msgpack grid.
func WriteTile(w io.Writer, g *Grid) error {
	if err := g.Validate(); err != nil {
		return err
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(g); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WriteTileFile writes g into dir under its tile name. The grid must start
// on a whole degree.
func WriteTileFile(dir string, g *Grid) (string, error) {
	path := filepath.Join(dir, TileName(int(math.Floor(g.South)), int(math.Floor(g.West))))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if err := WriteTile(f, g); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

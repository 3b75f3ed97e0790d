package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheEntries is the capacity of NewImageCache.
const DefaultCacheEntries = 32

// ImageCache keeps decoded images keyed by file path so that repeated
// statistics requests against the same exposure decode it only once.
//
// The cache holds at most its capacity of images; loading one more drops the
// least recently used. Masks and variance images count against the same
// capacity.
//
// ImageCache is safe for concurrent use. Two goroutines missing on the same
// path at the same time may both decode it; the last one stored wins and
// both results are equivalent.
//
//	cache := imaging.NewImageCacheSize(8)
//	img, err := cache.Load("/data/frame-0042.png")
//	if err != nil {
//	    return err
//	}
type ImageCache struct {
	images *lru.Cache[string, image.Image]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// CacheStats is a snapshot of cache usage.
type CacheStats struct {
	Entries  int    `json:"entries" yaml:"entries"`
	Capacity int    `json:"capacity" yaml:"capacity"`
	Hits     uint64 `json:"hits" yaml:"hits"`
	Misses   uint64 `json:"misses" yaml:"misses"`

	// Evictions counts images dropped to make room, not Evict or Clear.
	Evictions uint64 `json:"evictions" yaml:"evictions"`
}

// NewImageCache returns an empty cache holding DefaultCacheEntries images.
func NewImageCache() *ImageCache {
	return NewImageCacheSize(DefaultCacheEntries)
}

// NewImageCacheSize returns an empty cache holding at most size images.
// A size below 1 means DefaultCacheEntries.
func NewImageCacheSize(size int) *ImageCache {
	if size < 1 {
		size = DefaultCacheEntries
	}
	images, err := lru.New[string, image.Image](size)
	if err != nil {
		// lru.New fails only for a non-positive size.
		panic(err)
	}
	return &ImageCache{images: images}
}

// Load returns the image at path, decoding it from disk on the first call.
//
// Supported formats are PNG, JPEG and GIF. The path string is the cache key:
// a relative and an absolute path to the same file are cached separately.
func (c *ImageCache) Load(path string) (image.Image, error) {
	if img, ok := c.images.Get(path); ok {
		c.hits.Add(1)
		return img, nil
	}
	c.misses.Add(1)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}

	if c.images.Add(path, img) {
		c.evictions.Add(1)
	}
	return img, nil
}

// Clear drops every cached image.
func (c *ImageCache) Clear() {
	c.images.Purge()
}

// Evict drops one cached image. Unknown paths are ignored.
func (c *ImageCache) Evict(path string) {
	c.images.Remove(path)
}

// Stats returns the cache size and its hit, miss and eviction counters.
func (c *ImageCache) Stats() CacheStats {
	return CacheStats{
		Entries:   c.images.Len(),
		Capacity:  c.images.Cap(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}

// ImageInfo describes a loaded image and what can be measured on it.
type ImageInfo struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// Pixels is Width*Height, the sample count of a full-frame statistic.
	Pixels int `json:"pixels" yaml:"pixels"`

	// Format comes from the file extension: "png", "jpeg", "gif" or "unknown".
	Format string `json:"format" yaml:"format"`

	// ColorDepth is "8-bit" or "16-bit" per channel. Samples are always
	// scaled to 0..255, so 16-bit data is quantized.
	ColorDepth string `json:"color_depth" yaml:"color_depth"`

	// HasAlpha reports an alpha channel. Fully transparent pixels are
	// flagged NO_DATA.
	HasAlpha bool `json:"has_alpha" yaml:"has_alpha"`

	// Channels lists the channel names accepted by NewImageSource.
	Channels []string `json:"channels" yaml:"channels"`

	FileSizeBytes int64 `json:"file_size_bytes" yaml:"file_size_bytes"`
}

// LoadImageInfo loads an image through cache and describes it.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch img.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Pixels:        bounds.Dx() * bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		Channels:      ChannelNames(),
		FileSizeBytes: stat.Size(),
	}, nil
}

package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"

	"github.com/dgraph-io/ristretto"
	"github.com/disintegration/imaging"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	ristretto_store "github.com/eko/gocache/store/ristretto/v4"
	_ "golang.org/x/image/webp"
)

const (
	// AnalysisBound caps images sent to the provider.
	AnalysisBound = 512
	// StorageBound caps originals kept in the store.
	StorageBound = 1024
)

// ResizeImage scales data down so that neither side exceeds bound, keeping
// the aspect ratio. Smaller images are never upscaled. The result is PNG.
func ResizeImage(data []byte, bound int) ([]byte, error) {
	if bound <= 0 {
		return nil, fmt.Errorf("invalid bound %d", bound)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	resized := imaging.Fit(img, bound, bound, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image to png: %w", err)
	}
	return buf.Bytes(), nil
}

type ImageResizer struct {
	cache *cache.Cache[[]byte]
}

// NewImageResizer memoizes downsampled payloads, keyed by content hash and bound.
// The same stored original is downsampled again on every regeneration and
// composition, so hits are common.
func NewImageResizer() (*ImageResizer, error) {
	ristrettoCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 27, // 128MB of encoded images
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	ristrettoStore := ristretto_store.NewRistretto(ristrettoCache)
	return &ImageResizer{cache: cache.New[[]byte](ristrettoStore)}, nil
}

func resizeKey(data []byte, bound int) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%d:%s", bound, hex.EncodeToString(sum[:]))
}

func (r *ImageResizer) Resize(ctx context.Context, data []byte, bound int) ([]byte, error) {
	key := resizeKey(data, bound)
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, key); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}
	resized, err := ResizeImage(data, bound)
	if err != nil {
		return nil, err
	}
	if r.cache != nil {
		if err := r.cache.Set(ctx, key, resized, store.WithCost(int64(len(resized)))); err != nil {
			log.Printf("[Resize] cache set failed: %v", err)
		}
	}
	return resized, nil
}

// ResizeBase64 is Resize over a base64 (or data url) payload.
func (r *ImageResizer) ResizeBase64(ctx context.Context, field string, value string, bound int) ([]byte, error) {
	data, err := DecodeImage(field, value)
	if err != nil {
		return nil, err
	}
	resized, err := r.Resize(ctx, data, bound)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return resized, nil
}

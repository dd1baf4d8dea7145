package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeImageKeepsAspectRatio(t *testing.T) {
	cases := []struct {
		width, height int
	}{
		{2000, 1000},
		{1000, 333},
		{640, 1536},
		{513, 512},
	}
	for _, tc := range cases {
		resized, err := ResizeImage(pngFixture(t, tc.width, tc.height), AnalysisBound)
		require.NoError(t, err)

		w, h := imageSize(t, resized)
		assert.LessOrEqual(t, w, AnalysisBound)
		assert.LessOrEqual(t, h, AnalysisBound)
		assert.Equal(t, AnalysisBound, max(w, h))

		// height the original ratio predicts for the new width
		expectedH := float64(w) * float64(tc.height) / float64(tc.width)
		expectedW := float64(h) * float64(tc.width) / float64(tc.height)
		assert.True(t, math.Abs(expectedH-float64(h)) <= 1 || math.Abs(expectedW-float64(w)) <= 1,
			"%dx%d resized to %dx%d", tc.width, tc.height, w, h)
	}
}

func TestResizeImageNeverUpscales(t *testing.T) {
	resized, err := ResizeImage(pngFixture(t, 300, 200), StorageBound)
	require.NoError(t, err)
	w, h := imageSize(t, resized)
	assert.Equal(t, 300, w)
	assert.Equal(t, 200, h)
}

func TestResizeImageRejectsGarbage(t *testing.T) {
	_, err := ResizeImage([]byte("not an image"), AnalysisBound)
	assert.Error(t, err)
}

func TestImageResizerBase64(t *testing.T) {
	resizer, err := NewImageResizer()
	require.NoError(t, err)
	ctx := context.Background()

	payload := DataURL(base64Fixture(t, 1200, 800), "image/png")
	first, err := resizer.ResizeBase64(ctx, "image", payload, AnalysisBound)
	require.NoError(t, err)
	second, err := resizer.ResizeBase64(ctx, "image", payload, AnalysisBound)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	w, h := imageSize(t, first)
	assert.Equal(t, 512, w)
	assert.InDelta(t, 341, h, 1)

	_, err = resizer.ResizeBase64(ctx, "image", "%%%", AnalysisBound)
	assert.Error(t, err)
}

func TestWhitenBackground(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
		}
	}
	for y := 40; y < 60; y++ {
		for x := 40; x < 60; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	out, err := WhitenBackground(buf.Bytes(), WhitenThreshold, WhitenBlurSigma, WhitenProtection)
	require.NoError(t, err)
	decoded, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)

	r, g, b, _ := decoded.At(2, 2).RGBA()
	assert.Equal(t, []uint32{255, 255, 255}, []uint32{r >> 8, g >> 8, b >> 8})

	r, g, b, _ = decoded.At(50, 50).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})

	_, err = WhitenBackground(buf.Bytes(), WhitenThreshold, WhitenBlurSigma, 1.5)
	assert.Error(t, err)
}

func TestDataURLHelpers(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,QUJD", DataURL("QUJD", ""))
	assert.Equal(t, "QUJD", StripDataURL("data:image/jpeg;base64,QUJD"))
	assert.Equal(t, "QUJD", StripDataURL("QUJD"))

	data, err := DecodeImage("image", "data:image/png;base64,QUJD")
	require.NoError(t, err)
	assert.Equal(t, []byte("ABC"), data)

	_, err = DecodeImage("image", "")
	assert.Error(t, err)
}

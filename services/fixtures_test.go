package services

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"tryonstudio/dbhelper"
	"tryonstudio/store"

	"github.com/stretchr/testify/require"
)

func pngFixture(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func base64Fixture(t *testing.T, width, height int) string {
	return EncodeImage(pngFixture(t, width, height))
}

func imageSize(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg.Width, cfg.Height
}

func setupSettings(t *testing.T) *store.Settings {
	t.Helper()
	db := dbhelper.SetupTestDB()
	t.Cleanup(dbhelper.SetupCleaner(db))
	return store.NewSettings(db)
}

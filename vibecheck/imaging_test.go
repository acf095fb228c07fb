package vibecheck

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureJPEG_PassesThroughExistingJPEG(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	require.NoError(t, jpeg.Encode(&buf, img, nil))

	out := ensureJPEG(buf.Bytes())
	assert.Equal(t, buf.Bytes(), out)
}

func TestEnsureJPEG_ReencodesPNGFlatteningTransparency(t *testing.T) {
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{R: 200, A: 0})
	require.NoError(t, png.Encode(&buf, img))

	out := ensureJPEG(buf.Bytes())

	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestEnsureJPEG_PreservesOriginalOnUndecodableInput(t *testing.T) {
	garbage := []byte("not an image")
	out := ensureJPEG(garbage)
	assert.Equal(t, garbage, out)
}

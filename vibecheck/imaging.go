package vibecheck

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/tltguild/tlt-core/internal/apierr"
)

// downloadTimeout bounds the submitted-photo fetch (spec §4.8 step 2).
const downloadTimeout = 30 * time.Second

// jpegQuality is the fixed re-encode quality named in spec §4.8 step 3.
const jpegQuality = 95

// downloadPhoto fetches photoURL, aborting on a non-200 response or timeout.
func downloadPhoto(ctx context.Context, client *http.Client, photoURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, "build photo download request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstreamError, "download submitted photo", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apierr.Newf(apierr.KindUpstreamError, "photo download returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstreamError, "read downloaded photo body", err)
	}
	return data, nil
}

// ensureJPEG re-encodes data to JPEG quality 95 if it is not already JPEG,
// flattening any transparency against a white background. It returns the
// original bytes unchanged if decoding or re-encoding fails (spec §4.8
// step 3: "preserve original bytes if re-encoding fails").
func ensureJPEG(data []byte) []byte {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && format == "jpeg" {
		return data
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return data
	}

	flattened := flattenToWhite(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, flattened, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return data
	}
	return buf.Bytes()
}

// flattenToWhite draws img over an opaque white canvas, dropping any alpha
// channel the source format carried (PNG transparency, GIF frame masks).
func flattenToWhite(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)
	draw.Draw(dst, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)
	return dst
}

// mediaType maps a format hint to its image/* MIME type, defaulting to
// image/jpeg for unknown hints. The pipeline does not call it: callModel
// labels every image JPEG, since ensureJPEG re-encodes anything it can
// decode.
func mediaType(formatHint string) string {
	switch formatHint {
	case "png", "gif", "webp", "avif":
		return fmt.Sprintf("image/%s", formatHint)
	default:
		return "image/jpeg"
	}
}

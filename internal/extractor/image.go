package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxImageSize is the maximum dimension (width or height) sent to the
// embedding server. Larger images are downscaled first; detection quality
// does not improve beyond this and inference time does.
const MaxImageSize = 1920

// ValidateImage checks that the data decodes as a supported image format.
// Returns the decoded dimensions.
func ValidateImage(data []byte) (width, height int, err error) {
	if len(data) == 0 {
		return 0, 0, fmt.Errorf("empty image data")
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// PrepareImage validates the image and downscales it to fit within
// MaxImageSize, re-encoding as JPEG. Images already within bounds are
// returned unchanged to avoid a pointless re-encode.
func PrepareImage(data []byte) ([]byte, error) {
	width, height, err := ValidateImage(data)
	if err != nil {
		return nil, err
	}
	if width <= MaxImageSize && height <= MaxImageSize {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = MaxImageSize
		newHeight = height * MaxImageSize / width
	} else {
		newHeight = MaxImageSize
		newWidth = width * MaxImageSize / height
	}

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, img.Bounds(), draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("failed to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

package extractor

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func encodeTestJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestValidateImage(t *testing.T) {
	data := encodeTestJPEG(t, 64, 48)
	w, h, err := ValidateImage(data)
	if err != nil {
		t.Fatalf("ValidateImage failed: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("expected 64x48, got %dx%d", w, h)
	}
}

func TestValidateImageEmpty(t *testing.T) {
	if _, _, err := ValidateImage(nil); err == nil {
		t.Error("empty data must fail validation")
	}
}

func TestValidateImageGarbage(t *testing.T) {
	if _, _, err := ValidateImage([]byte("definitely not an image")); err == nil {
		t.Error("undecodable data must fail validation")
	}
}

func TestPrepareImageSmallUnchanged(t *testing.T) {
	data := encodeTestJPEG(t, 100, 80)
	out, err := PrepareImage(data)
	if err != nil {
		t.Fatalf("PrepareImage failed: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("images within bounds should be returned unchanged")
	}
}

func TestPrepareImageDownscales(t *testing.T) {
	data := encodeTestJPEG(t, MaxImageSize*2, MaxImageSize)
	out, err := PrepareImage(data)
	if err != nil {
		t.Fatalf("PrepareImage failed: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("failed to decode prepared image: %v", err)
	}
	if cfg.Width != MaxImageSize {
		t.Errorf("expected width %d, got %d", MaxImageSize, cfg.Width)
	}
	if cfg.Height != MaxImageSize/2 {
		t.Errorf("expected height %d, got %d", MaxImageSize/2, cfg.Height)
	}
}

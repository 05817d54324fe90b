package storage

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/jdeng/goheif"
)

// Transcoder re-encodes uploaded images as bounded JPEGs
type Transcoder struct {
	MaxDimension int
	Quality      int
}

// Transcode decodes any supported image (HEIC included), applies its EXIF
// orientation, shrinks it to fit MaxDimension and encodes it as JPEG.
func (t Transcoder) Transcode(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image data")
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	if t.MaxDimension > 0 {
		b := img.Bounds()
		if b.Dx() > t.MaxDimension || b.Dy() > t.MaxDimension {
			img = imaging.Fit(img, t.MaxDimension, t.MaxDimension, imaging.Lanczos)
		}
	}

	quality := t.Quality
	if quality <= 0 {
		quality = 80
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (image.Image, error) {
	if IsHEIC(data) {
		img, err := goheif.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode heic image: %w", err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// IsHEIC sniffs the ISO-BMFF ftyp box for a HEIF brand
func IsHEIC(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return true
	}
	return false
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder

	"technexus/internal/models"
)

const (
	thumbMaxWidth  = 1280
	thumbQuality   = 85
	maxImagePixels = 40_000_000
)

// formatTypes maps decoder format names to the content types they serve.
var formatTypes = map[string][]string{
	"jpeg": {"image/jpeg", "image/jpg"},
	"png":  {"image/png"},
	"gif":  {"image/gif"},
	"webp": {"image/webp"},
}

// prepared is a thumbnail ready for upload.
type prepared struct {
	data        []byte
	contentType string
	ext         string
}

// prepareThumbnail checks that data really is an image of the declared
// type and scales images wider than thumbMaxWidth down to a JPEG. GIFs are
// kept as uploaded so animations survive.
func prepareThumbnail(data []byte, contentType, ext string) (*prepared, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, models.Invalid("thumbnail", "file is not a valid image")
	}
	if !declares(format, normalizeType(contentType)) {
		return nil, models.Invalid("thumbnail", "file content does not match its type")
	}

	// Check for image bombs.
	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, models.Invalid("thumbnail", fmt.Sprintf("image is too large: %dx%d", cfg.Width, cfg.Height))
	}

	keep := &prepared{data: data, contentType: normalizeType(contentType), ext: ext}
	if cfg.Width <= thumbMaxWidth || format == "gif" {
		return keep, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.Invalid("thumbnail", "file is not a valid image")
	}

	// Preserve the aspect ratio.
	bounds := img.Bounds()
	height := max(1, bounds.Dy()*thumbMaxWidth/bounds.Dx())
	dst := image.NewRGBA(image.Rect(0, 0, thumbMaxWidth, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: thumbQuality}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return &prepared{data: buf.Bytes(), contentType: "image/jpeg", ext: ".jpg"}, nil
}

func declares(format, contentType string) bool {
	for _, t := range formatTypes[format] {
		if t == contentType {
			return true
		}
	}
	return false
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package storage

import (
	"fmt"
	"mime"
	"strings"

	"technexus/internal/models"
)

// MaxThumbnailSize is the largest accepted thumbnail, 2 MiB.
const MaxThumbnailSize = 2 << 20

var thumbnailTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// ValidateThumbnail checks an upload's declared type and size and returns
// the file extension to store it under.
func ValidateThumbnail(contentType string, size int64) (string, error) {
	ext, ok := thumbnailTypes[normalizeType(contentType)]
	if !ok {
		return "", models.Invalid("thumbnail", "unsupported file type, upload a JPG, PNG, GIF or WebP image")
	}
	if size <= 0 {
		return "", models.Invalid("thumbnail", "file is empty")
	}
	if size > MaxThumbnailSize {
		return "", models.Invalid("thumbnail", fmt.Sprintf("file exceeds the %d MB limit", MaxThumbnailSize>>20))
	}
	return ext, nil
}

func normalizeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

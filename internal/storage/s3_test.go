package storage

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"technexus/internal/models"
)

type fakeS3 struct {
	puts    []*s3.PutObjectInput
	body    string
	deletes []string
	err     error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestNewWithoutConfig(t *testing.T) {
	c, err := New("", "us-east-1", "", "", "media", "")
	if err != nil || c != nil {
		t.Errorf("New() = %v, %v, want nil, nil", c, err)
	}
	if _, err := New("http://s3.local", "us-east-1", "key", "secret", "", ""); err == nil {
		t.Error("New() without bucket should fail")
	}
}

func TestValidateThumbnail(t *testing.T) {
	tests := []struct {
		contentType string
		size        int64
		wantExt     string
		wantErr     bool
	}{
		{"image/jpeg", 1024, ".jpg", false},
		{"image/jpg", 1024, ".jpg", false},
		{"IMAGE/PNG", 1024, ".png", false},
		{"image/gif", 1024, ".gif", false},
		{"image/webp; charset=binary", 1024, ".webp", false},
		{"image/webp", MaxThumbnailSize, ".webp", false},
		{"image/webp", MaxThumbnailSize + 1, "", true},
		{"image/svg+xml", 1024, "", true},
		{"application/pdf", 1024, "", true},
		{"image/png", 0, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			ext, err := ValidateThumbnail(tt.contentType, tt.size)
			if tt.wantErr {
				var ve *models.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("err = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ext != tt.wantExt {
				t.Errorf("ext = %q, want %q", ext, tt.wantExt)
			}
		})
	}
}

// encodeImage returns a w x h image in the given format.
func encodeImage(t *testing.T, format string, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	default:
		t.Fatalf("unknown format %q", format)
	}
	if err != nil {
		t.Fatalf("encode %s: %v", format, err)
	}
	return buf.Bytes()
}

func TestUploadThumbnail(t *testing.T) {
	api := &fakeS3{}
	c := NewWithAPI(api, "http://s3.local/", "media", "")
	data := encodeImage(t, "png", 40, 30)

	url, err := c.UploadThumbnail(context.Background(), "user-1", "image/png", bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("UploadThumbnail: %v", err)
	}
	if len(api.puts) != 1 {
		t.Fatalf("puts = %d, want 1", len(api.puts))
	}
	key := aws.ToString(api.puts[0].Key)
	if !strings.HasPrefix(key, "thumbnails/user-1/") || !strings.HasSuffix(key, ".png") {
		t.Errorf("key = %q", key)
	}
	if url != "http://s3.local/media/"+key {
		t.Errorf("url = %q", url)
	}
	if api.body != string(data) {
		t.Error("small images should be uploaded unchanged")
	}
	if got := aws.ToString(api.puts[0].ContentType); got != "image/png" {
		t.Errorf("content type = %q", got)
	}

	if err := c.DeleteThumbnail(context.Background(), "user-1", url); err != nil {
		t.Fatalf("DeleteThumbnail: %v", err)
	}
	if len(api.deletes) != 1 || api.deletes[0] != key {
		t.Errorf("deletes = %v, want [%s]", api.deletes, key)
	}
}

func TestUploadThumbnailScalesWideImages(t *testing.T) {
	api := &fakeS3{}
	c := NewWithAPI(api, "http://s3.local", "media", "")
	data := encodeImage(t, "png", 2560, 100)

	if _, err := c.UploadThumbnail(context.Background(), "u", "image/png", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("UploadThumbnail: %v", err)
	}
	if !strings.HasSuffix(aws.ToString(api.puts[0].Key), ".jpg") {
		t.Errorf("key = %q, want a .jpg", aws.ToString(api.puts[0].Key))
	}
	if got := aws.ToString(api.puts[0].ContentType); got != "image/jpeg" {
		t.Errorf("content type = %q", got)
	}
	cfg, format, err := image.DecodeConfig(strings.NewReader(api.body))
	if err != nil {
		t.Fatalf("decode uploaded body: %v", err)
	}
	if format != "jpeg" || cfg.Width != thumbMaxWidth || cfg.Height != 50 {
		t.Errorf("uploaded %s %dx%d, want jpeg %dx50", format, cfg.Width, cfg.Height, thumbMaxWidth)
	}
}

func TestUploadThumbnailKeepsWideGIFs(t *testing.T) {
	api := &fakeS3{}
	c := NewWithAPI(api, "http://s3.local", "media", "")
	data := encodeImage(t, "gif", 1600, 10)

	if _, err := c.UploadThumbnail(context.Background(), "u", "image/gif", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("UploadThumbnail: %v", err)
	}
	if api.body != string(data) {
		t.Error("GIFs should be uploaded unchanged")
	}
}

func TestUploadThumbnailRejectsBeforeUpload(t *testing.T) {
	pngData := encodeImage(t, "png", 10, 10)
	tests := []struct {
		name        string
		contentType string
		data        []byte
	}{
		{"unsupported type", "text/html", []byte("<p>x</p>")},
		{"not an image", "image/png", []byte("png-bytes")},
		{"type mismatch", "image/jpeg", pngData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeS3{}
			c := NewWithAPI(api, "http://s3.local", "media", "")
			_, err := c.UploadThumbnail(context.Background(), "u", tt.contentType, bytes.NewReader(tt.data), int64(len(tt.data)))
			var ve *models.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if len(api.puts) != 0 {
				t.Error("nothing should be uploaded")
			}
		})
	}
}

func TestUploadThumbnailTransportError(t *testing.T) {
	data := encodeImage(t, "gif", 4, 4)
	c := NewWithAPI(&fakeS3{err: errors.New("503")}, "http://s3.local", "media", "")
	_, err := c.UploadThumbnail(context.Background(), "u", "image/gif", bytes.NewReader(data), int64(len(data)))
	var te *models.TransportError
	if !errors.As(err, &te) {
		t.Errorf("err = %v, want TransportError", err)
	}
}

func TestDeleteThumbnailIgnoresForeignURLs(t *testing.T) {
	api := &fakeS3{}
	c := NewWithAPI(api, "http://s3.local", "media", "https://cdn.example.com")

	tests := []struct {
		name  string
		owner models.ID
		url   string
	}{
		{"default thumbnail", "u", models.DefaultThumbnail},
		{"outside thumbnails", "u", "https://cdn.example.com/avatars/x.png"},
		{"another owner", "u", "https://cdn.example.com/thumbnails/other/a.png"},
		{"owner prefix only", "u", "https://cdn.example.com/thumbnails/u2/a.png"},
		{"no owner", "", "https://cdn.example.com/thumbnails/u/a.png"},
	}
	for _, tt := range tests {
		if err := c.DeleteThumbnail(context.Background(), tt.owner, tt.url); err != nil {
			t.Errorf("%s: DeleteThumbnail: %v", tt.name, err)
		}
	}
	if len(api.deletes) != 0 {
		t.Errorf("deletes = %v, want none", api.deletes)
	}

	if err := c.DeleteThumbnail(context.Background(), "u", "https://cdn.example.com/thumbnails/u/a.png"); err != nil {
		t.Fatal(err)
	}
	if len(api.deletes) != 1 || api.deletes[0] != "thumbnails/u/a.png" {
		t.Errorf("deletes = %v, want [thumbnails/u/a.png]", api.deletes)
	}
}

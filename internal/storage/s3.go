// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage uploads article thumbnails to S3-compatible object
// storage. It wraps the AWS SDK v2 with path-style access so it works
// against CEPH, MinIO and Hetzner as well as AWS.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"technexus/internal/models"
)

// ObjectAPI is the subset of the S3 client used here.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Client stores thumbnails in one public bucket.
type Client struct {
	api       ObjectAPI
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL
}

// New creates a client. It returns (nil, nil) when the endpoint or the
// credentials are empty, so the server can start without uploads.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Client, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage: bucket is required")
	}
	endpoint = strings.TrimRight(endpoint, "/")

	api := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})
	return NewWithAPI(api, endpoint, bucket, publicURL), nil
}

// NewWithAPI creates a client over an existing object API.
func NewWithAPI(api ObjectAPI, endpoint, bucket, publicURL string) *Client {
	return &Client{
		api:       api,
		bucket:    bucket,
		endpoint:  strings.TrimRight(endpoint, "/"),
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// UploadThumbnail validates an image and stores it under
// thumbnails/<owner>/<uuid><ext>, returning its public URL. Wide images
// are scaled down before upload.
func (c *Client) UploadThumbnail(ctx context.Context, owner models.ID, contentType string, body io.Reader, size int64) (string, error) {
	ext, err := ValidateThumbnail(contentType, size)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(io.LimitReader(body, MaxThumbnailSize+1))
	if err != nil {
		return "", fmt.Errorf("read thumbnail: %w", err)
	}
	if _, err := ValidateThumbnail(contentType, int64(len(data))); err != nil {
		return "", err
	}
	thumb, err := prepareThumbnail(data, contentType, ext)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate thumbnail key: %w", err)
	}
	key := fmt.Sprintf("thumbnails/%s/%s%s", owner, id, thumb.ext)

	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(thumb.data),
		ContentLength: aws.Int64(int64(len(thumb.data))),
		ContentType:   aws.String(thumb.contentType),
		ACL:           s3types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", models.Transport("upload thumbnail", fmt.Errorf("s3 put %s/%s: %w", c.bucket, key, err))
	}
	return c.FileURL(key), nil
}

// DeleteThumbnail removes a thumbnail that UploadThumbnail stored for
// owner. URLs that point elsewhere, including other owners' thumbnails, are
// ignored.
func (c *Client) DeleteThumbnail(ctx context.Context, owner models.ID, rawURL string) error {
	key, ok := c.ExtractKey(rawURL)
	if !ok || owner.IsZero() || !strings.HasPrefix(key, "thumbnails/"+owner.String()+"/") {
		return nil
	}
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return models.Transport("delete thumbnail", fmt.Errorf("s3 delete %s/%s: %w", c.bucket, key, err))
	}
	return nil
}

// FileURL returns the public URL of key. Uses the configured public URL if
// set, otherwise builds a path-style URL.
func (c *Client) FileURL(key string) string {
	if c.publicURL != "" {
		return c.publicURL + "/" + key
	}
	return c.endpoint + "/" + c.bucket + "/" + key
}

// ExtractKey returns the object key of a URL built by FileURL.
func (c *Client) ExtractKey(rawURL string) (string, bool) {
	if c.publicURL != "" {
		if key, ok := strings.CutPrefix(rawURL, c.publicURL+"/"); ok {
			return key, true
		}
	}
	return strings.CutPrefix(rawURL, c.endpoint+"/"+c.bucket+"/")
}

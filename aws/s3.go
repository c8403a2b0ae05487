package aws

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// PutDocument writes document content under its storage key. Safe to
// repeat, a second put with the same key just overwrites
func (c *S3Client) PutDocument(ctx context.Context, key, contentType string, data []byte) error {
	_, err := c.C.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      c.Bucket,
		Key:         &key,
		ContentType: &contentType,
		Body:        bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put document %s, %w", key, err)
	}

	return nil
}

// FetchDocument reads document content back by its storage key
func (c *S3Client) FetchDocument(ctx context.Context, key string) ([]byte, error) {
	out, err := c.C.GetObject(ctx, &s3.GetObjectInput{
		Bucket: c.Bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s, %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s, %w", key, err)
	}

	return data, nil
}

// DeleteDocument removes document content. Deleting a key that was never
// written (or was already deleted by a concurrent sweep) succeeds
func (c *S3Client) DeleteDocument(ctx context.Context, key string) error {
	_, err := c.C.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: c.Bucket,
		Key:    &key,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil
		}

		return fmt.Errorf("failed to delete document %s, %w", key, err)
	}

	return nil
}

package awscloud

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nerrad567/gray-logic-edge/internal/orchestrator"
)

// maxObjectSize bounds objects read into memory (install scripts and
// templates are a few kilobytes).
const maxObjectSize = 10 << 20

// s3API is the subset of *s3.Client used by Objects.
type s3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	CopyObject(ctx context.Context, in *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
}

// Objects implements orchestrator.ObjectStore on one S3 bucket.
type Objects struct {
	api    s3API
	bucket string
}

var _ orchestrator.ObjectStore = (*Objects)(nil)

// NewObjects creates an Objects adapter for bucket.
func NewObjects(api s3API, bucket string) *Objects {
	return &Objects{api: api, bucket: bucket}
}

// GetObject reads an object's body.
func (o *Objects) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := o.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, classifyError("s3 GetObject "+key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(io.LimitReader(out.Body, maxObjectSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading s3 object %s: %w", key, err)
	}
	if len(body) > maxObjectSize {
		return nil, fmt.Errorf("s3 object %s exceeds %d bytes", key, maxObjectSize)
	}
	return body, nil
}

// PutObject writes an object.
func (o *Objects) PutObject(ctx context.Context, key string, body []byte) error {
	_, err := o.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return classifyError("s3 PutObject "+key, err)
}

// DeleteObject deletes an object. Deleting a missing key succeeds.
func (o *Objects) DeleteObject(ctx context.Context, key string) error {
	_, err := o.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(o.bucket),
		Key:    aws.String(key),
	})
	return classifyError("s3 DeleteObject "+key, err)
}

// CopyObject copies srcKey to dstKey within the bucket.
func (o *Objects) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	_, err := o.api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(o.bucket),
		CopySource: aws.String(copySource(o.bucket, srcKey)),
		Key:        aws.String(dstKey),
	})
	return classifyError("s3 CopyObject "+srcKey, err)
}

// copySource builds the URL-encoded "bucket/key" CopySource value.
func copySource(bucket, key string) string {
	return url.PathEscape(bucket) + "/" + (&url.URL{Path: key}).EscapedPath()
}

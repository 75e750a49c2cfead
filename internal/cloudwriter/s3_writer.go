package cloudwriter

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type S3Writer struct {
	ctx        context.Context
	client     *s3.Client
	bucket     string
	objectPath string
	buffer     bytes.Buffer
}

type S3WriterFactory struct {
	client *s3.Client
	bucket string
}

func NewS3WriterFactory(ctx context.Context, region, bucket string) (*S3WriterFactory, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return &S3WriterFactory{client: client, bucket: bucket}, nil
}

func (f *S3WriterFactory) NewWriter(ctx context.Context, objectPath string) (CloudWriter, error) {
	return &S3Writer{
		ctx:        ctx,
		client:     f.client,
		bucket:     f.bucket,
		objectPath: objectPath,
	}, nil
}

func (f *S3WriterFactory) Location(objectPath string) string {
	return fmt.Sprintf("s3://%s/%s", f.bucket, objectPath)
}

func (w *S3Writer) Write(data []byte) (int, error) {
	return w.buffer.Write(data)
}

func (w *S3Writer) Close() error {
	_, err := w.client.PutObject(w.ctx, &s3.PutObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(w.objectPath),
		Body:   bytes.NewReader(w.buffer.Bytes()),
	})
	if err != nil {
		return fmt.Errorf("unable to upload %s to S3: %w", w.objectPath, err)
	}
	return nil
}

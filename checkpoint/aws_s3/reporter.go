package aws_s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/RiemaLabs/modular-indexer-ordinals/checkpoint"
)

type Uploader struct {
	uploader *manager.Uploader
	bucket   string
}

func NewUploader(ctx context.Context, accessKey, secretKey, region, bucket string) (*Uploader, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config, error: %v", err)
	}
	return &Uploader{uploader: manager.NewUploader(s3.NewFromConfig(cfg)), bucket: bucket}, nil
}

// Upload stores c as a JSON object named by its ObjectKey.
func (u *Uploader) Upload(ctx context.Context, c *checkpoint.Checkpoint) error {
	return UploadCheckpointByS3(ctx, u.uploader, u.bucket, c)
}

func UploadCheckpointByS3(ctx context.Context, uploader *manager.Uploader, bucket string, c *checkpoint.Checkpoint) error {
	checkpointJSON, err := json.Marshal(c)
	if err != nil {
		return err
	}
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(c.ObjectKey()),
		Body:        bytes.NewReader(checkpointJSON),
		ContentType: aws.String("application/json"),
	})
	return err
}

package s3client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/yuya-takeyama/site-s3-sync/pkg/tags"
)

// maxDeleteBatch is the DeleteObjects per-request key limit.
const maxDeleteBatch = 1000

type AWSClient struct {
	client   *s3.Client
	uploader *manager.Uploader
	retry    retryPolicy
}

func NewAWSClient(cfg aws.Config, optFns ...func(*s3.Options)) *AWSClient {
	client := s3.NewFromConfig(cfg, optFns...)
	return &AWSClient{
		client:   client,
		uploader: manager.NewUploader(client),
		retry:    defaultRetryPolicy(),
	}
}

// WithEndpoint points the client at an S3-compatible endpoint using
// path-style addressing.
func WithEndpoint(endpoint string) func(*s3.Options) {
	return func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	}
}

func (c *AWSClient) ListObjects(ctx context.Context, req *ListObjectsRequest) ([]ItemMetadata, error) {
	var items []ItemMetadata

	paginator := s3.NewListObjectsV2Paginator(c.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
		Prefix: aws.String(req.Prefix),
	})

	for paginator.HasMorePages() {
		page, err := withRetry(ctx, c.retry, nil, func() (*s3.ListObjectsV2Output, error) {
			return paginator.NextPage(ctx)
		})
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}

		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			key := trimS3KeyPrefix(*obj.Key, req.Prefix)
			if key == "" {
				continue
			}
			items = append(items, ItemMetadata{
				Path:    key,
				Size:    aws.ToInt64(obj.Size),
				ModTime: aws.ToTime(obj.LastModified),
			})
		}
	}

	return items, nil
}

func (c *AWSClient) HeadObject(ctx context.Context, req *HeadObjectRequest) (*ObjectInfo, error) {
	resp, err := withRetry(ctx, c.retry, nil, func() (*s3.HeadObjectOutput, error) {
		return c.client.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket:       aws.String(req.Bucket),
			Key:          aws.String(req.Key),
			ChecksumMode: types.ChecksumModeEnabled,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("head object: %w", err)
	}

	return &ObjectInfo{
		Size:     aws.ToInt64(resp.ContentLength),
		Checksum: aws.ToString(resp.ChecksumCRC64NVME),
	}, nil
}

func (c *AWSClient) PutObject(ctx context.Context, req *PutObjectRequest) error {
	headers, err := parseHeaders(req.ACL, req.Attributes)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:            aws.String(req.Bucket),
		Key:               aws.String(req.Key),
		Body:              req.Body,
		ChecksumAlgorithm: types.ChecksumAlgorithmCrc64nvme,
	}
	headers.applyPut(input)

	// Only seekable bodies can be replayed.
	policy := c.retry
	var rewind func() error
	if seeker, ok := req.Body.(io.Seeker); ok {
		rewind = func() error {
			_, err := seeker.Seek(0, io.SeekStart)
			return err
		}
	} else {
		policy.maxRetries = 0
	}

	_, err = withRetry(ctx, policy, rewind, func() (*manager.UploadOutput, error) {
		return c.uploader.Upload(ctx, input)
	})
	if err != nil {
		return fmt.Errorf("put object: %w", err)
	}
	return nil
}

func (c *AWSClient) CopyObject(ctx context.Context, req *CopyObjectRequest) error {
	headers, err := parseHeaders(req.ACL, req.Attributes)
	if err != nil {
		return err
	}

	input := &s3.CopyObjectInput{
		Bucket:            aws.String(req.Bucket),
		Key:               aws.String(req.Key),
		CopySource:        aws.String(copySource(req.Bucket, req.Key)),
		MetadataDirective: types.MetadataDirectiveReplace,
	}
	headers.applyCopy(input)

	_, err = withRetry(ctx, c.retry, nil, func() (*s3.CopyObjectOutput, error) {
		return c.client.CopyObject(ctx, input)
	})
	if err != nil {
		return fmt.Errorf("copy object: %w", err)
	}
	return nil
}

func (c *AWSClient) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	var errs []error
	for _, batch := range batchKeys(keys, maxDeleteBatch) {
		objects := make([]types.ObjectIdentifier, len(batch))
		for i, key := range batch {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		out, err := withRetry(ctx, c.retry, nil, func() (*s3.DeleteObjectsOutput, error) {
			return c.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(bucket),
				Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
			})
		})
		if err != nil {
			return fmt.Errorf("delete objects: %w", err)
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("delete %s: %s: %s",
				aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}
	return errors.Join(errs...)
}

func (c *AWSClient) GetBucketTagging(ctx context.Context, bucket string) ([]tags.Tag, error) {
	out, err := withRetry(ctx, c.retry, nil, func() (*s3.GetBucketTaggingOutput, error) {
		return c.client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{
			Bucket: aws.String(bucket),
		})
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet" {
			return []tags.Tag{}, nil
		}
		return nil, fmt.Errorf("get bucket tagging: %w", err)
	}

	result := make([]tags.Tag, 0, len(out.TagSet))
	for _, t := range out.TagSet {
		result = append(result, tags.Tag{Key: aws.ToString(t.Key), Value: aws.ToString(t.Value)})
	}
	return result, nil
}

func (c *AWSClient) PutBucketTagging(ctx context.Context, bucket string, tagSet []tags.Tag) error {
	set := make([]types.Tag, len(tagSet))
	for i, t := range tagSet {
		set[i] = types.Tag{Key: aws.String(t.Key), Value: aws.String(t.Value)}
	}

	_, err := withRetry(ctx, c.retry, nil, func() (*s3.PutBucketTaggingOutput, error) {
		return c.client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
			Bucket:  aws.String(bucket),
			Tagging: &types.Tagging{TagSet: set},
		})
	})
	if err != nil {
		return fmt.Errorf("put bucket tagging: %w", err)
	}
	return nil
}

func batchKeys(keys []string, size int) [][]string {
	var batches [][]string
	for len(keys) > size {
		batches = append(batches, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		batches = append(batches, keys)
	}
	return batches
}

package executor

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/tags"
)

// mockS3Client is a mock implementation of s3client.Client for testing
type mockS3Client struct {
	headObjectFunc    func(ctx context.Context, req *s3client.HeadObjectRequest) (*s3client.ObjectInfo, error)
	putObjectFunc     func(ctx context.Context, req *s3client.PutObjectRequest) error
	deleteObjectsFunc func(ctx context.Context, bucket string, keys []string) error

	mu      sync.Mutex
	puts    []*s3client.PutObjectRequest
	bodies  map[string]string
	deleted []string
}

func (m *mockS3Client) ListObjects(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ItemMetadata, error) {
	return nil, fmt.Errorf("ListObjects not implemented")
}

func (m *mockS3Client) HeadObject(ctx context.Context, req *s3client.HeadObjectRequest) (*s3client.ObjectInfo, error) {
	if m.headObjectFunc != nil {
		return m.headObjectFunc(ctx, req)
	}
	return nil, fmt.Errorf("HeadObject not implemented")
}

func (m *mockS3Client) PutObject(ctx context.Context, req *s3client.PutObjectRequest) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.puts = append(m.puts, req)
	if m.bodies == nil {
		m.bodies = map[string]string{}
	}
	m.bodies[req.Key] = string(body)
	m.mu.Unlock()

	if m.putObjectFunc != nil {
		return m.putObjectFunc(ctx, req)
	}
	return nil
}

func (m *mockS3Client) CopyObject(ctx context.Context, req *s3client.CopyObjectRequest) error {
	return fmt.Errorf("CopyObject not implemented")
}

func (m *mockS3Client) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, keys...)
	m.mu.Unlock()

	if m.deleteObjectsFunc != nil {
		return m.deleteObjectsFunc(ctx, bucket, keys)
	}
	return nil
}

func (m *mockS3Client) GetBucketTagging(ctx context.Context, bucket string) ([]tags.Tag, error) {
	return nil, fmt.Errorf("GetBucketTagging not implemented")
}

func (m *mockS3Client) PutBucketTagging(ctx context.Context, bucket string, tagSet []tags.Tag) error {
	return fmt.Errorf("PutBucketTagging not implemented")
}

package syncer

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/yuya-takeyama/site-s3-sync/internal/checksum"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
	"github.com/yuya-takeyama/site-s3-sync/pkg/tags"
)

type object struct {
	body  string
	acl   string
	attrs rules.Attributes
}

// memoryStore is an in-memory s3client.Client.
type memoryStore struct {
	mu      sync.Mutex
	objects map[string]map[string]*object
	tags    map[string][]tags.Tag
	calls   []string

	failPut  map[string]bool
	failTags bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		objects: map[string]map[string]*object{},
		tags:    map[string][]tags.Tag{},
	}
}

func (m *memoryStore) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *memoryStore) put(bucket, key, body string) {
	if m.objects[bucket] == nil {
		m.objects[bucket] = map[string]*object{}
	}
	m.objects[bucket][key] = &object{body: body}
}

func (m *memoryStore) keys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := []string{}
	for k := range m.objects[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *memoryStore) ListObjects(ctx context.Context, req *s3client.ListObjectsRequest) ([]s3client.ItemMetadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("list %s/%s", req.Bucket, req.Prefix)

	var items []s3client.ItemMetadata
	for key, obj := range m.objects[req.Bucket] {
		if !strings.HasPrefix(key, req.Prefix) {
			continue
		}
		items = append(items, s3client.ItemMetadata{Path: strings.TrimPrefix(key, req.Prefix), Size: int64(len(obj.body))})
	}
	return items, nil
}

func (m *memoryStore) HeadObject(ctx context.Context, req *s3client.HeadObjectRequest) (*s3client.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[req.Bucket][req.Key]
	if !ok {
		return nil, fmt.Errorf("NotFound: %s", req.Key)
	}
	sum, err := checksum.CalculateCRC64NVME(strings.NewReader(obj.body))
	if err != nil {
		return nil, err
	}
	return &s3client.ObjectInfo{Size: int64(len(obj.body)), Checksum: sum}, nil
}

func (m *memoryStore) PutObject(ctx context.Context, req *s3client.PutObjectRequest) error {
	body, err := io.ReadAll(req.Body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("put %s/%s", req.Bucket, req.Key)
	if m.failPut[req.Key] {
		return fmt.Errorf("InternalError: %s", req.Key)
	}
	m.put(req.Bucket, req.Key, string(body))
	m.objects[req.Bucket][req.Key].acl = req.ACL
	m.objects[req.Bucket][req.Key].attrs = req.Attributes
	return nil
}

func (m *memoryStore) CopyObject(ctx context.Context, req *s3client.CopyObjectRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("copy %s/%s", req.Bucket, req.Key)
	obj, ok := m.objects[req.Bucket][req.Key]
	if !ok {
		return fmt.Errorf("NoSuchKey: %s", req.Key)
	}
	obj.acl = req.ACL
	obj.attrs = req.Attributes
	return nil
}

func (m *memoryStore) DeleteObjects(ctx context.Context, bucket string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		m.record("delete %s/%s", bucket, k)
		delete(m.objects[bucket], k)
	}
	return nil
}

func (m *memoryStore) GetBucketTagging(ctx context.Context, bucket string) ([]tags.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("get-tags %s", bucket)
	if m.failTags {
		return nil, fmt.Errorf("AccessDenied")
	}
	return append([]tags.Tag{}, m.tags[bucket]...), nil
}

func (m *memoryStore) PutBucketTagging(ctx context.Context, bucket string, tagSet []tags.Tag) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("put-tags %s", bucket)
	m.tags[bucket] = tagSet
	return nil
}

type recordingRunner struct {
	mu       sync.Mutex
	commands []string
	err      error
}

func (r *recordingRunner) Run(ctx context.Context, command, dir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = append(r.commands, command+" @ "+dir)
	return r.err
}

package planner

import (
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/s3client"
)

// FileEntry is one local file with the object attributes it should carry.
type FileEntry struct {
	AbsolutePath string           `json:"localPath"`
	RelativeKey  string           `json:"relativeKey"`
	Key          string           `json:"key"`
	ContentType  string           `json:"contentType,omitempty"`
	Attributes   rules.Attributes `json:"attributes,omitempty"`
	Include      bool             `json:"-"`
	Size         int64            `json:"size"`

	// Remote is the listed object at Key, nil when the object does not exist yet.
	Remote *s3client.ItemMetadata `json:"-"`
}

// Plan is the candidate set for one site. Deletes holds full object keys.
type Plan struct {
	Uploads []FileEntry `json:"uploads"`
	Deletes []string    `json:"deletes"`
}

type Options struct {
	Env                string
	KeyPrefix          string
	DeleteRemoved      bool
	DefaultContentType string

	// Excludes protects matching remote keys from deletion.
	Excludes []string

	// Protected lists relative paths that could not be read locally. Remote
	// keys equal to an entry, or under an entry ending in "/", are kept. An
	// empty entry keeps everything.
	Protected []string
}

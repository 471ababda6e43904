// Package config loads the site list that drives a sync invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yuya-takeyama/site-s3-sync/pkg/fnmatch"
	"github.com/yuya-takeyama/site-s3-sync/pkg/rules"
	"github.com/yuya-takeyama/site-s3-sync/pkg/syncerr"
)

const (
	DefaultACL         = "private"
	DefaultConcurrency = 32
)

// Config is the complete invocation configuration.
type Config struct {
	Stage       string `yaml:"stage"`
	StackName   string `yaml:"stackName"`
	Region      string `yaml:"region"`
	Profile     string `yaml:"profile"`
	Endpoint    string `yaml:"endpoint"`
	Concurrency int    `yaml:"concurrency"`
	Sites       []Site `yaml:"buckets"`
}

// Site pairs a local directory with a bucket and prefix.
type Site struct {
	LocalDir           string            `yaml:"localDir"`
	BucketName         string            `yaml:"bucketName"`
	BucketNameKey      string            `yaml:"bucketNameKey"`
	BucketPrefix       string            `yaml:"bucketPrefix"`
	ACL                string            `yaml:"acl"`
	DeleteRemoved      *bool             `yaml:"deleteRemoved"`
	FollowSymlinks     bool              `yaml:"followSymlinks"`
	DefaultContentType string            `yaml:"defaultContentType"`
	PreCommand         string            `yaml:"preCommand"`
	Params             rules.Rules       `yaml:"params"`
	Rules              rules.Rules       `yaml:"rules"`
	BucketTags         map[string]string `yaml:"bucketTags"`
	Exclude            []string          `yaml:"exclude"`
	Enabled            *bool             `yaml:"enabled"`
}

// ShouldDeleteRemoved reports whether remote objects missing locally are deleted.
func (s *Site) ShouldDeleteRemoved() bool {
	return s.DeleteRemoved == nil || *s.DeleteRemoved
}

// IsEnabled reports whether the site takes part in the invocation.
func (s *Site) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// AllRules returns params followed by rules, in declaration order.
func (s *Site) AllRules() []rules.Rule {
	all := make([]rules.Rule, 0, len(s.Params)+len(s.Rules))
	all = append(all, s.Params...)
	return append(all, s.Rules...)
}

// KeyPrefix returns the S3 key prefix for the site: "" or "a/b/".
func (s *Site) KeyPrefix() string {
	p := strings.TrimPrefix(s.BucketPrefix, "/")
	if p == "" {
		return ""
	}
	return p + "/"
}

// ResolveLocalDir returns the absolute local directory, relative paths being
// taken from servicePath.
func (s *Site) ResolveLocalDir(servicePath string) (string, error) {
	dir := s.LocalDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(servicePath, dir)
	}
	return filepath.Abs(dir)
}

// NormalizePrefix returns prefix with a single leading slash and no trailing
// slash, or "" for an empty prefix.
func NormalizePrefix(prefix string) string {
	trimmed := strings.Trim(prefix, "/")
	if trimmed == "" {
		return ""
	}
	return "/" + trimmed
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(os.ExpandEnv(path))
	if err != nil {
		return nil, &syncerr.Error{Kind: syncerr.ErrConfig, Op: "read", Err: err}
	}

	return Parse(data)
}

// Parse decodes either a top-level list of sites or a mapping with a
// "buckets" key, then applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &syncerr.Error{Kind: syncerr.ErrConfig, Op: "parse", Err: err}
	}

	var cfg Config
	if len(doc.Content) > 0 {
		root := doc.Content[0]
		var err error
		switch root.Kind {
		case yaml.SequenceNode:
			err = root.Decode(&cfg.Sites)
		case yaml.MappingNode:
			err = root.Decode(&cfg)
		default:
			err = fmt.Errorf("line %d: expected a list of sites or a mapping with a buckets key", root.Line)
		}
		if err != nil {
			return nil, &syncerr.Error{Kind: syncerr.ErrConfig, Op: "parse", Err: err}
		}
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandEnv expands environment variables in string fields
func (c *Config) expandEnv() {
	c.Stage = os.ExpandEnv(c.Stage)
	c.StackName = os.ExpandEnv(c.StackName)
	c.Region = os.ExpandEnv(c.Region)
	c.Profile = os.ExpandEnv(c.Profile)
	c.Endpoint = os.ExpandEnv(c.Endpoint)
	for i := range c.Sites {
		s := &c.Sites[i]
		s.LocalDir = os.ExpandEnv(s.LocalDir)
		s.BucketName = os.ExpandEnv(s.BucketName)
		s.BucketNameKey = os.ExpandEnv(s.BucketNameKey)
		s.BucketPrefix = os.ExpandEnv(s.BucketPrefix)
	}
}

func (c *Config) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	for i := range c.Sites {
		s := &c.Sites[i]
		if s.ACL == "" {
			s.ACL = DefaultACL
		}
		s.BucketPrefix = NormalizePrefix(s.BucketPrefix)
	}
}

// Validate checks the configuration for errors. Every failure is a ConfigError.
// Disabled sites are not checked.
func (c *Config) Validate() error {
	if len(c.Sites) == 0 {
		return syncerr.Config("no sites configured")
	}
	for i := range c.Sites {
		if !c.Sites[i].IsEnabled() {
			continue
		}
		if err := c.Sites[i].Validate(); err != nil {
			return fmt.Errorf("site %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks a single site.
func (s *Site) Validate() error {
	if s.LocalDir == "" {
		return syncerr.Config("localDir is required")
	}
	switch {
	case s.BucketName == "" && s.BucketNameKey == "":
		return syncerr.Config("%s: one of bucketName or bucketNameKey is required", s.LocalDir)
	case s.BucketName != "" && s.BucketNameKey != "":
		return syncerr.Config("%s: bucketName and bucketNameKey are mutually exclusive", s.LocalDir)
	}
	if err := fnmatch.Validate(s.Exclude); err != nil {
		return syncerr.Config("%s: %v", s.LocalDir, err)
	}
	return nil
}

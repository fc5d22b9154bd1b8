package filestore

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	commons3 "github.com/xxxsen/common/s3"
)

type s3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PublicURL string `json:"public_url"`
	UseSSL    bool   `json:"use_ssl"`
}

// s3Store is write-only from the server's side; sources are read back
// through their public URL.
type s3Store struct {
	client  *commons3.S3Client
	prefix  string
	baseURL string
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(args interface{}) (Store, error) {
	config := &s3Config{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Endpoint == "" || config.Bucket == "" || config.SecretID == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("s3 endpoint/bucket/secret_id/secret_key are required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	client, err := commons3.New(
		commons3.WithEndpoint(config.Endpoint),
		commons3.WithSecret(config.SecretID, config.SecretKey),
		commons3.WithBucket(config.Bucket),
		commons3.WithRegion(config.Region),
		commons3.WithSSL(config.UseSSL),
	)
	if err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(config.PublicURL, "/")
	if base == "" {
		base = bucketURL(config.Endpoint, config.Bucket, config.UseSSL)
	}
	return &s3Store{
		client:  client,
		prefix:  strings.Trim(config.Prefix, "/"),
		baseURL: base,
	}, nil
}

func (s *s3Store) Type() string {
	return "s3"
}

func (s *s3Store) objectKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func (s *s3Store) URL(key string) string {
	return s.baseURL + "/" + strings.TrimPrefix(s.objectKey(key), "/")
}

func (s *s3Store) Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error {
	if !ValidKey(key) {
		return fmt.Errorf("invalid file key %q", key)
	}
	if _, err := s.client.Upload(ctx, s.objectKey(key), r, size); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func (s *s3Store) Open(ctx context.Context, key string) (ReadSeekCloser, error) {
	return nil, fmt.Errorf("s3 store is write-only, fetch %s instead", s.URL(key))
}

func bucketURL(endpoint, bucket string, useSSL bool) string {
	ep := endpoint
	if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
		scheme := "http"
		if useSSL {
			scheme = "https"
		}
		ep = scheme + "://" + ep
	}
	u, err := url.Parse(ep)
	if err != nil {
		return strings.TrimSuffix(ep, "/") + "/" + bucket
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + bucket
	return strings.TrimSuffix(u.String(), "/")
}

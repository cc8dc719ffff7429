package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds the connection settings for an S3-compatible bucket used
// as the remote namespace. Object keys are mapped onto a directory tree by
// treating "/" separated prefixes as directories.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store is a Store over an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
}

// DialS3 builds an S3Store. The client is validated with a bucket-exists
// probe so connection-level failures surface before the run starts.
func DialS3(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint must be provided")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket must be provided")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, &TransportError{Host: cfg.Endpoint, Err: err}
	}

	ok, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		errResp := minio.ToErrorResponse(err)
		if errResp.Code == "AccessDenied" || errResp.Code == "InvalidAccessKeyId" ||
			errResp.Code == "SignatureDoesNotMatch" {
			return nil, &AuthError{Host: cfg.Endpoint, Err: err}
		}
		return nil, &TransportError{Host: cfg.Endpoint, Err: err}
	}
	if !ok {
		return nil, &TransportError{Host: cfg.Endpoint,
			Err: fmt.Errorf("bucket %s does not exist", cfg.Bucket)}
	}

	return &S3Store{client: client, bucket: cfg.Bucket}, nil
}

// List returns one level of the prefix hierarchy under dir. Common prefixes
// come back as directory entries, objects as files.
func (s *S3Store) List(ctx context.Context, dir string) ([]Entry, error) {
	prefix := strings.Trim(dir, "/")
	if prefix != "" {
		prefix += "/"
	}

	var entries []Entry
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: false,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if name == "" {
			continue // the prefix placeholder object itself
		}
		if strings.HasSuffix(name, "/") {
			entries = append(entries, Entry{
				Name:  strings.TrimSuffix(name, "/"),
				IsDir: true,
			})
			continue
		}
		entries = append(entries, Entry{Name: name, Size: obj.Size})
	}
	return entries, nil
}

// Fetch downloads the object at remotePath into localPath via a temporary
// file renamed into place after the copy completed.
func (s *S3Store) Fetch(ctx context.Context, remotePath, localPath string) error {
	key := strings.Trim(remotePath, "/")
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	tmp := localPath + ".partial"
	dst, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := io.Copy(dst, obj); err != nil {
		dst.Close()
		os.Remove(tmp)
		return fmt.Errorf("download %s: %w", key, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, localPath); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// Delete removes the object at remotePath.
func (s *S3Store) Delete(ctx context.Context, remotePath string) error {
	key := strings.Trim(remotePath, "/")
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Concurrent is true: the minio client is safe for concurrent use, so every
// worker can issue operations directly.
func (s *S3Store) Concurrent() bool { return true }

// Close is a no-op; the minio client holds no persistent session.
func (s *S3Store) Close() error { return nil }

var _ Store = (*S3Store)(nil)

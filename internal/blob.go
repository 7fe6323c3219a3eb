package internal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// UploadTarget is a write location handed out before the bytes are sent
type UploadTarget struct {
	URL    string `json:"url"`
	Method string `json:"method"`
	Key    string `json:"key"`
}

// BlobStorage stores generated images in three steps: request a target,
// upload to it, then resolve the stored reference to a URL.
type BlobStorage interface {
	RequestUploadTarget(ctx context.Context) (UploadTarget, error)
	Upload(ctx context.Context, target UploadTarget, data []byte, mimeType string) (string, error)
	URL(ctx context.Context, storageRef string) (string, error)
}

// S3Storage uploads through presigned URLs
type S3Storage struct {
	presigner *s3.PresignClient
	bucket    string
	prefix    string
	urlTTL    time.Duration
	client    *http.Client
}

var (
	_ BlobStorage = (*S3Storage)(nil)
	_ BlobStorage = (*FSStorage)(nil)
)

// NewS3Storage loads the default AWS configuration and creates an S3 backed storage
func NewS3Storage(ctx context.Context, bucket, prefix string, urlTTL time.Duration) (*S3Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewS3StorageFromClient(s3.NewFromConfig(cfg), bucket, prefix, urlTTL), nil
}

// NewS3StorageFromClient wraps an existing S3 client
func NewS3StorageFromClient(client *s3.Client, bucket, prefix string, urlTTL time.Duration) *S3Storage {
	if urlTTL <= 0 {
		urlTTL = time.Hour
	}
	return &S3Storage{
		presigner: s3.NewPresignClient(client),
		bucket:    bucket,
		prefix:    prefix,
		urlTTL:    urlTTL,
		client:    &http.Client{Timeout: time.Minute},
	}
}

func (s *S3Storage) RequestUploadTarget(ctx context.Context) (UploadTarget, error) {
	key := path.Join(s.prefix, "images", uuid.NewString())
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return UploadTarget{}, fmt.Errorf("presigning upload: %w", err)
	}
	return UploadTarget{URL: req.URL, Method: req.Method, Key: key}, nil
}

// Upload sends the bytes to the presigned URL and returns the object key
func (s *S3Storage) Upload(ctx context.Context, target UploadTarget, data []byte, mimeType string) (string, error) {
	if target.Key == "" {
		return "", fmt.Errorf("upload target has no storage key")
	}
	method := target.Method
	if method == "" {
		method = http.MethodPut
	}

	req, err := http.NewRequestWithContext(ctx, method, target.URL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set("Content-Type", mimeType)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("upload returned %s: %s", resp.Status, bytes.TrimSpace(body))
	}
	return target.Key, nil
}

// URL returns a time limited download link
func (s *S3Storage) URL(ctx context.Context, storageRef string) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageRef),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("presigning download: %w", err)
	}
	return req.URL, nil
}

// FSStorage keeps images on local disk; the HTTP server serves them under /images/
type FSStorage struct {
	dir     string
	baseURL string
}

// NewFSStorage creates the images directory if needed
func NewFSStorage(dir, baseURL string) (*FSStorage, error) {
	if err := EnsureDirs(dir); err != nil {
		return nil, fmt.Errorf("creating images directory: %w", err)
	}
	return &FSStorage{dir: dir, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Dir is the directory images are written to
func (s *FSStorage) Dir() string {
	return s.dir
}

func (s *FSStorage) RequestUploadTarget(ctx context.Context) (UploadTarget, error) {
	key := uuid.NewString()
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(filepath.Join(s.dir, key))}
	return UploadTarget{URL: u.String(), Method: http.MethodPut, Key: key}, nil
}

func (s *FSStorage) Upload(ctx context.Context, target UploadTarget, data []byte, mimeType string) (string, error) {
	if target.Key == "" || strings.ContainsAny(target.Key, `/\`) {
		return "", fmt.Errorf("invalid storage key %q", target.Key)
	}
	if err := os.WriteFile(filepath.Join(s.dir, target.Key), data, 0644); err != nil {
		return "", fmt.Errorf("writing image: %w", err)
	}
	return target.Key, nil
}

func (s *FSStorage) URL(ctx context.Context, storageRef string) (string, error) {
	if !FileExists(filepath.Join(s.dir, storageRef)) {
		return "", fmt.Errorf("image %s: %w", storageRef, ErrNotFound)
	}
	return s.baseURL + "/images/" + url.PathEscape(storageRef), nil
}

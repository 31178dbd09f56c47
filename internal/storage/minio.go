package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrInvalidFileID = errors.New("invalid file id")
)

const objectPrefix = "files/"

type Config struct {
	Endpoint          string
	AccessKeyID       string
	SecretAccessKey   string
	Bucket            string
	UseSSL            bool
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
}

// File is a stored object read back into memory.
type File struct {
	ID          string
	ContentType string
	Data        []byte
}

// UploadTicket lets a client PUT a file straight to the bucket.
type UploadTicket struct {
	FileID    string    `json:"file_id"`
	UploadURL string    `json:"upload_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MinioStore struct {
	client         *minio.Client
	bucket         string
	uploadExpiry   time.Duration
	downloadExpiry time.Duration
}

func NewMinioStore(ctx context.Context, cfg Config) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client failed: %w", err)
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence failed: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket failed: %w", err)
		}
	}

	return &MinioStore{
		client:         client,
		bucket:         cfg.Bucket,
		uploadExpiry:   cfg.UploadURLExpiry,
		downloadExpiry: cfg.DownloadURLExpiry,
	}, nil
}

func NewFileID() string {
	return uuid.NewString()
}

func objectKey(fileID string) (string, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return "", ErrInvalidFileID
	}
	return objectPrefix + fileID, nil
}

// GenerateUploadURL reserves a new file id and presigns a PUT for it.
func (s *MinioStore) GenerateUploadURL(ctx context.Context) (*UploadTicket, error) {
	fileID := NewFileID()
	key, _ := objectKey(fileID)

	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, s.uploadExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign upload url failed: %w", err)
	}
	return &UploadTicket{
		FileID:    fileID,
		UploadURL: u.String(),
		ExpiresAt: time.Now().Add(s.uploadExpiry),
	}, nil
}

func (s *MinioStore) Put(ctx context.Context, fileID string, r io.Reader, size int64, contentType string) error {
	key, err := objectKey(fileID)
	if err != nil {
		return err
	}
	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return fmt.Errorf("upload to s3 failed: %w", err)
	}
	return nil
}

func (s *MinioStore) Get(ctx context.Context, fileID string) (*File, error) {
	key, err := objectKey(fileID)
	if err != nil {
		return nil, err
	}
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object from s3 failed: %w", err)
	}
	defer object.Close()

	info, err := object.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object failed: %w", err)
	}

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(object); err != nil {
		return nil, fmt.Errorf("read object data failed: %w", err)
	}
	return &File{ID: fileID, ContentType: info.ContentType, Data: buf.Bytes()}, nil
}

func (s *MinioStore) Exists(ctx context.Context, fileID string) (bool, error) {
	key, err := objectKey(fileID)
	if err != nil {
		return false, nil
	}
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object failed: %w", err)
	}
	return true, nil
}

// URL returns a presigned download URL for the file.
func (s *MinioStore) URL(ctx context.Context, fileID string) (string, error) {
	key, err := objectKey(fileID)
	if err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.downloadExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign download url failed: %w", err)
	}
	return u.String(), nil
}

func (s *MinioStore) Delete(ctx context.Context, fileID string) error {
	key, err := objectKey(fileID)
	if err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete from s3 failed: %w", err)
	}
	return nil
}

// Ping reports whether the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	if _, err := s.client.BucketExists(ctx, s.bucket); err != nil {
		return fmt.Errorf("s3 bucket check failed: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}

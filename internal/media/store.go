// Package media stores ticket attachments and survey voice notes in S3.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("media: object exceeds size limit")

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Kinds of stored objects; each gets its own key prefix.
const (
	KindAttachment = "attachments"
	KindVoiceNote  = "voice-notes"
)

// Store writes and reads intake media. If no bucket is configured, all
// operations are no-ops and Enabled reports false.
type Store struct {
	bucket   string
	s3Client S3API
	maxBytes int64
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates a media store.
func NewStore(s3Client S3API, bucket string, maxBytes int64, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &Store{
		bucket:   bucket,
		s3Client: s3Client,
		maxBytes: maxBytes,
		logger:   logger.Component("media"),
		now:      time.Now,
	}
}

// Enabled reports whether media storage is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Object describes a stored object.
type Object struct {
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// Put uploads an object and returns its key. The reader is capped at the
// configured size limit; a longer stream fails with ErrTooLarge rather than
// truncating silently.
func (s *Store) Put(ctx context.Context, kind, orgID, filename, contentType string, r io.Reader) (*Object, error) {
	if !s.Enabled() {
		return nil, errors.New("media: storage not configured")
	}
	if kind != KindAttachment && kind != KindVoiceNote {
		return nil, fmt.Errorf("media: unknown kind %q", kind)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("media: read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	now := s.now().UTC()
	key := fmt.Sprintf("%s/%s/%d/%02d/%s-%s",
		kind, orgID, now.Year(), now.Month(), uuid.NewString(), sanitizeFilename(filename))

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(string(data)),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("media: s3 put %s: %w", key, err)
	}

	s.logger.Info("stored media object", "key", key, "size", len(data), "content_type", contentType)
	return &Object{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// Get streams a stored object. The caller closes the reader.
func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if !s.Enabled() {
		return nil, "", errors.New("media: storage not configured")
	}
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("media: s3 get %s: %w", key, err)
	}
	return resp.Body, aws.ToString(resp.ContentType), nil
}

// ReadAll fetches a whole object into memory, for transcription.
func (s *Store) ReadAll(ctx context.Context, key string) ([]byte, string, error) {
	body, contentType, err := s.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()
	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes))
	if err != nil {
		return nil, "", fmt.Errorf("media: read object %s: %w", key, err)
	}
	return data, contentType, nil
}

// sanitizeFilename keeps the base name and strips characters that would
// break S3 keys or smuggle path segments.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" || out == "." || out == ".." {
		return "upload"
	}
	return out
}

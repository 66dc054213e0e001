// Package storage issues presigned URLs for an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Options configures the presigner
type Options struct {
	Bucket          string
	Region          string
	Endpoint        string // empty for AWS, set for MinIO/R2 and friends
	AccessKeyID     string
	SecretAccessKey string
	TTL             time.Duration
}

// Presigner signs upload and download URLs
type Presigner struct {
	bucket  string
	ttl     time.Duration
	presign *s3.PresignClient
}

// NewPresigner builds a presigner. Static credentials are used when given,
// otherwise the default AWS credential chain.
func NewPresigner(ctx context.Context, o Options) (*Presigner, error) {
	loadOpts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(o.Region)}
	if o.AccessKeyID != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(o.AccessKeyID, o.SecretAccessKey, ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(opts *s3.Options) {
		if o.Endpoint != "" {
			opts.BaseEndpoint = aws.String(o.Endpoint)
			opts.UsePathStyle = true
		}
	})

	ttl := o.TTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Presigner{bucket: o.Bucket, ttl: ttl, presign: s3.NewPresignClient(client)}, nil
}

// Signed is a presigned request
type Signed struct {
	URL       string `json:"url"`
	Method    string `json:"method"`
	Key       string `json:"key"`
	ExpiresAt int64  `json:"expires_at"`
}

// PresignUpload signs a PUT of key with the given content type
func (p *Presigner) PresignUpload(ctx context.Context, key, contentType string) (Signed, error) {
	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return Signed{}, fmt.Errorf("presign upload: %w", err)
	}
	return Signed{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: time.Now().Add(p.ttl).UnixMilli()}, nil
}

// PresignDownload signs a GET of key
func (p *Presigner) PresignDownload(ctx context.Context, key string) (Signed, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.ttl))
	if err != nil {
		return Signed{}, fmt.Errorf("presign download: %w", err)
	}
	return Signed{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: time.Now().Add(p.ttl).UnixMilli()}, nil
}

const keyPrefix = "chapters/"

// ObjectKey returns a fresh key for filename under chapterID
func ObjectKey(chapterID, filename string) string {
	return fmt.Sprintf("%s%s/%s-%s", keyPrefix, chapterID, uuid.NewString(), sanitize(filename))
}

// ChapterOf returns the chapter a key belongs to, or false for a malformed key
func ChapterOf(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") {
		return "", false
	}
	rest := strings.TrimPrefix(key, keyPrefix)
	chapter, name, ok := strings.Cut(rest, "/")
	if !ok || chapter == "" || name == "" || strings.Contains(name, "/") {
		return "", false
	}
	return chapter, true
}

// sanitize keeps the base name and replaces anything outside [A-Za-z0-9._-]
func sanitize(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "file"
	}
	return out
}

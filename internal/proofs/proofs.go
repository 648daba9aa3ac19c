// Package proofs stores payment-proof files (receipt images or PDFs) in an
// S3 bucket under comprobantes/{uploaderID}/{orderID}_{randomID}.{ext}.
package proofs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
)

const keyPrefix = "comprobantes"

var (
	// ErrStorageUnavailable covers both an unprovisioned bucket and plain
	// connectivity failures; either way the fix is operational, not a retry.
	ErrStorageUnavailable = errors.New("payment proof storage is unavailable: the bucket does not exist or cannot be reached, check STORAGE_BUCKET and STORAGE_REGION")
	ErrStorageForbidden   = errors.New("payment proof storage denied access: check the credentials and bucket policy")
	ErrUnrecognizedURL    = errors.New("unrecognized payment proof URL")
)

// Client is the S3 surface the storage layer uses; tests substitute a fake.
type Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewClient builds a real S3 client from the default AWS config chain.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

type Storage struct {
	client Client
	bucket string
	region string
}

func NewStorage(client Client, bucket, region string) *Storage {
	return &Storage{client: client, bucket: bucket, region: region}
}

// Upload stores the proof under a collision-resistant key and returns a
// durable retrieval URL. Callers are expected to run ValidateFile first.
func (s *Storage) Upload(ctx context.Context, uploaderID string, orderID int64, filename, contentType string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = "." + extensionFor(contentType)
	}

	key := fmt.Sprintf("%s/%s/%d_%s%s", keyPrefix, uploaderID, orderID, uuid.NewString(), ext)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", s.translate("upload payment proof", err)
	}

	return s.objectURL(key), nil
}

var keyPattern = regexp.MustCompile(`(` + keyPrefix + `/[^/?#]+/[^/?#]+\.[A-Za-z0-9]+)`)

// Delete removes a proof given the URL previously returned by Upload. An
// URL the key cannot be matched out of is an error, not a silent no-op.
func (s *Storage) Delete(ctx context.Context, proofURL string) error {
	key, err := keyFromURL(proofURL)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return s.translate("delete payment proof", err)
	}
	return nil
}

type Availability int

const (
	StorageAvailable Availability = iota
	StorageNotProvisioned
	StorageUnauthorized // bucket exists but this path is off limits
)

func (a Availability) String() string {
	switch a {
	case StorageAvailable:
		return "available"
	case StorageNotProvisioned:
		return "not provisioned"
	case StorageUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

// Probe issues a cheap list against a sentinel prefix so the UI can decide
// whether a real upload is worth attempting. A permission failure still
// proves the bucket exists.
func (s *Storage) Probe(ctx context.Context) (Availability, error) {
	_, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(keyPrefix + "/healthcheck/"),
		MaxKeys: aws.Int32(1),
	})
	if err == nil {
		return StorageAvailable, nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return StorageNotProvisioned, nil
		case "AccessDenied":
			return StorageUnauthorized, nil
		}
	}
	return StorageNotProvisioned, fmt.Errorf("probe payment proof storage: %w", err)
}

// translate folds backend failures into the two actionable cases and keeps
// everything else wrapped with its original message.
func (s *Storage) translate(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchBucket":
			return ErrStorageUnavailable
		case "AccessDenied":
			return ErrStorageForbidden
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	// No API-level response at all: connectivity or misconfiguration.
	return ErrStorageUnavailable
}

func (s *Storage) objectURL(key string) string {
	escaped := strings.Split(key, "/")
	for i, part := range escaped {
		escaped[i] = url.PathEscape(part)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, strings.Join(escaped, "/"))
}

func keyFromURL(proofURL string) (string, error) {
	decoded := proofURL
	if u, err := url.QueryUnescape(proofURL); err == nil {
		decoded = u
	}
	match := keyPattern.FindString(decoded)
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrUnrecognizedURL, proofURL)
	}
	return match, nil
}

func extensionFor(contentType string) string {
	if ext, ok := allowedTypes[strings.ToLower(contentType)]; ok {
		return ext
	}
	return "bin"
}

// Package publish uploads build archives to S3.
//
// Example usage:
//
//	up, err := publish.NewFromEnv(ctx, cfg.Publish)
//	if err != nil {
//	    return err
//	}
//	obj, err := up.Upload(ctx, result.Archive, map[string]string{"version": md.Version})
package publish

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/vango-dev/pyfreeze/internal/config"
	"github.com/vango-dev/pyfreeze/internal/ctxlog"
	"github.com/vango-dev/pyfreeze/internal/errors"
)

// PutObjectAPI is the subset of *s3.Client used by Uploader.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Object describes an uploaded archive.
type Object struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// URI returns the object's s3:// URI.
func (o *Object) URI() string {
	return "s3://" + o.Bucket + "/" + o.Key
}

// Uploader uploads archives to one bucket.
type Uploader struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// New creates an Uploader for the bucket and prefix in cfg.
func New(client PutObjectAPI, cfg config.PublishConfig) *Uploader {
	return &Uploader{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

// NewFromEnv creates an Uploader with credentials and region from the
// standard AWS environment. cfg.Region overrides the environment's region.
func NewFromEnv(ctx context.Context, cfg config.PublishConfig) (*Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("E102").WithField("publish.bucket", "")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("E183").
			WithDetail("AWS configuration could not be loaded").
			Wrap(err)
	}
	return New(s3.NewFromConfig(awsCfg), cfg), nil
}

// Key returns the object key for the archive at path.
func (u *Uploader) Key(path string) string {
	return u.prefix + filepath.Base(path)
}

// Upload uploads the file at path. Metadata is stored as S3 user metadata.
func (u *Uploader) Upload(ctx context.Context, path string, metadata map[string]string) (*Object, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New("E183").WithPath(path).Wrap(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errors.New("E183").WithPath(path).Wrap(err)
	}

	meta := map[string]string{
		"upload-time": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range metadata {
		meta[strings.ToLower(k)] = v
	}

	key := u.Key(path)
	ctxlog.FromContext(ctx).Info("uploading archive", "bucket", u.bucket, "key", key, "size", info.Size())

	out, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String("application/zip"),
		Metadata:      meta,
	})
	if err != nil {
		return nil, errors.New("E183").
			WithPath(path).
			WithDetail("s3 upload to " + u.bucket + "/" + key + " failed").
			Wrap(err)
	}

	obj := &Object{Bucket: u.bucket, Key: key, Size: info.Size()}
	if out != nil && out.ETag != nil {
		obj.ETag = strings.Trim(*out.ETag, `"`)
	}
	return obj, nil
}

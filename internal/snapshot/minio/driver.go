// Package minio provides a MinIO-backed snapshot.Store.
package minio

import (
	"bytes"
	"context"
	"encoding/json"

	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mkoline/schemascope/internal/errs"
	"github.com/mkoline/schemascope/internal/snapshot"
)

// Driver stores snapshots as JSON objects in a MinIO bucket. It is safe
// for concurrent use.
type Driver struct {
	client *miniogo.Client
	bucket string
}

// New builds a Driver from cfg and verifies the bucket is reachable before
// returning.
func New(ctx context.Context, cfg snapshot.Config) (*Driver, error) {
	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindConnection, "failed to create minio client", err)
	}

	d := &Driver{client: client, bucket: cfg.Bucket}
	if err := d.Ping(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Ping verifies the configured bucket exists.
func (d *Driver) Ping(ctx context.Context) error {
	ok, err := d.client.BucketExists(ctx, d.bucket)
	if err != nil {
		return errs.Wrap(errs.KindConnection, "snapshot store unreachable", err)
	}
	if !ok {
		return errs.New(errs.KindNotFound, "snapshot bucket does not exist: "+d.bucket)
	}
	return nil
}

// Save writes the snapshot as a JSON object and returns its key.
func (d *Driver) Save(ctx context.Context, snap *snapshot.Snapshot) (string, error) {
	body, err := json.Marshal(snap)
	if err != nil {
		return "", errs.Wrap(errs.KindFormat, "failed to encode snapshot", err)
	}

	key := snapshot.ObjectKey(snap.Project, snap.Schema.Database, snap.TakenAt)
	_, err = d.client.PutObject(ctx, d.bucket, key, bytes.NewReader(body), int64(len(body)),
		miniogo.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return "", errs.Wrap(errs.KindConnection, "failed to store snapshot", err)
	}
	return key, nil
}

// Close is a no-op; the MinIO client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

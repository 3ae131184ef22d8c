// Package objectstore keeps generated videos in a NATS JetStream object store.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	contentTypeHeader  = "Content-Type"
	defaultContentType = "video/mp4"
)

// ErrBucketEmpty indicates that no bucket name was given.
var ErrBucketEmpty = errors.New("object store bucket cannot be empty")

// NatsObjectStore implements core.ObjectStore on a JetStream object bucket.
type NatsObjectStore struct {
	bucket        string
	store         nats.ObjectStore
	publicBaseURL string
	contentType   string
}

// Option customizes a NatsObjectStore.
type Option func(*NatsObjectStore)

// WithContentType sets the Content-Type header stored with every upload.
func WithContentType(contentType string) Option {
	return func(n *NatsObjectStore) {
		if contentType != "" {
			n.contentType = contentType
		}
	}
}

// New creates the bucket, or binds to it when it already exists. Objects are
// addressed publicly as publicBaseURL followed by the object key.
func New(js nats.JetStreamContext, bucket, publicBaseURL string, opts ...Option) (*NatsObjectStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, ErrBucketEmpty
	}

	store, err := openBucket(js, bucket)
	if err != nil {
		return nil, err
	}

	n := &NatsObjectStore{
		bucket:        bucket,
		store:         store,
		publicBaseURL: publicBaseURL,
		contentType:   defaultContentType,
	}
	for _, opt := range opts {
		opt(n)
	}

	return n, nil
}

func openBucket(js nats.JetStreamContext, bucket string) (nats.ObjectStore, error) {
	store, err := js.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucket,
		Description: "Generated videos in the " + bucket + " bucket.",
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err == nil {
		return store, nil
	}

	if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucket, err)
	}

	store, err = js.ObjectStore(bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to bind to object store bucket '%s': %w", bucket, err)
	}

	return store, nil
}

// Download reads a whole object into memory.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores data under key, replacing any previous object.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte) error {
	headers := nats.Header{}
	headers.Set(contentTypeHeader, n.contentType)

	_, err := n.store.Put(&nats.ObjectMeta{Name: key, Headers: headers}, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}

// ContentType returns the stored Content-Type header of key.
func (n *NatsObjectStore) ContentType(key string) (string, error) {
	info, err := n.store.GetInfo(key)
	if err != nil {
		return "", fmt.Errorf("failed to stat object '%s': %w", key, err)
	}

	if info.Headers == nil {
		return "", nil
	}

	return info.Headers.Get(contentTypeHeader), nil
}

// URL returns the public address under which the object is served. Without a
// public base URL the object is addressed by bucket.
func (n *NatsObjectStore) URL(key string) string {
	if n.publicBaseURL == "" {
		return fmt.Sprintf("nats://%s/%s", n.bucket, key)
	}

	return strings.TrimSuffix(n.publicBaseURL, "/") + "/" + strings.TrimPrefix(key, "/")
}

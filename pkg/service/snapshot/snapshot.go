package snapshot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/adsafe/pkg/domain/interfaces"
	"github.com/secmon-lab/adsafe/pkg/domain/model"
	"github.com/secmon-lab/adsafe/pkg/utils/safe"
)

const gcsScheme = "gs://"

// blob moves raw snapshot bytes to and from a location
type blob interface {
	read(ctx context.Context) ([]byte, error)
	write(ctx context.Context, data []byte) error
	close() error
}

// Store reads and writes the snapshot artifact at a local path or a gs:// object
type Store struct {
	location string
	format   Format
	blob     blob
}

var (
	_ interfaces.SnapshotReader = &Store{}
	_ interfaces.SnapshotWriter = &Store{}
)

type Option func(*options)

type options struct {
	gcsClient *storage.Client
	format    Format
}

// WithGCSClient uses an existing storage client instead of creating one
func WithGCSClient(client *storage.Client) Option {
	return func(o *options) {
		o.gcsClient = client
	}
}

// WithFormat overrides the format inferred from the location
func WithFormat(format Format) Option {
	return func(o *options) {
		o.format = format
	}
}

// New opens the snapshot at location. A "gs://bucket/object" location uses
// Cloud Storage; anything else is a local file path.
func New(ctx context.Context, location string, opts ...Option) (*Store, error) {
	if location == "" {
		return nil, goerr.Wrap(model.ErrValidation, "snapshot location is empty")
	}

	o := &options{format: FormatFromPath(location)}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{location: location, format: o.format}

	if rest, ok := strings.CutPrefix(location, gcsScheme); ok {
		bucket, object, found := strings.Cut(rest, "/")
		if !found || bucket == "" || object == "" {
			return nil, goerr.Wrap(model.ErrValidation, "invalid GCS snapshot location", goerr.V("location", location))
		}

		client := o.gcsClient
		owned := false
		if client == nil {
			var err error
			client, err = storage.NewClient(ctx)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to create storage client", goerr.V("location", location))
			}
			owned = true
		}
		s.blob = &gcsBlob{client: client, owned: owned, bucket: bucket, object: object, format: o.format}
		return s, nil
	}

	s.blob = &fileBlob{path: location}
	return s, nil
}

// Location returns the configured location
func (s *Store) Location() string {
	return s.location
}

// Read loads the snapshot. A missing artifact returns model.ErrNotFound.
func (s *Store) Read(ctx context.Context) ([]model.DecodedRule, error) {
	data, err := s.blob.read(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := Unmarshal(data, s.format)
	if err != nil {
		return nil, goerr.Wrap(err, "malformed snapshot", goerr.V("location", s.location))
	}
	return rules, nil
}

// Write replaces the snapshot with rules
func (s *Store) Write(ctx context.Context, rules []model.DecodedRule) error {
	data, err := Marshal(rules, s.format)
	if err != nil {
		return err
	}
	return s.blob.write(ctx, data)
}

func (s *Store) Close() error {
	return s.blob.close()
}

type fileBlob struct {
	path string
}

func (b *fileBlob) read(ctx context.Context) ([]byte, error) {
	f, err := os.Open(filepath.Clean(b.path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "snapshot file does not exist", goerr.V("path", b.path))
		}
		return nil, goerr.Wrap(err, "failed to open snapshot file", goerr.V("path", b.path))
	}
	defer safe.Close(ctx, f)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot file", goerr.V("path", b.path))
	}
	return data, nil
}

func (b *fileBlob) write(ctx context.Context, data []byte) error {
	if dir := filepath.Dir(b.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerr.Wrap(err, "failed to create snapshot directory", goerr.V("path", b.path))
		}
	}

	// Write to a sibling file first so readers never see a partial artifact
	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write snapshot file", goerr.V("path", tmp))
	}
	if err := os.Rename(tmp, b.path); err != nil {
		return goerr.Wrap(err, "failed to replace snapshot file", goerr.V("path", b.path))
	}
	return nil
}

func (b *fileBlob) close() error {
	return nil
}

type gcsBlob struct {
	client *storage.Client
	owned  bool
	bucket string
	object string
	format Format
}

func (b *gcsBlob) handle() *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.object)
}

func (b *gcsBlob) read(ctx context.Context) ([]byte, error) {
	r, err := b.handle().NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, goerr.Wrap(model.ErrNotFound, "snapshot object does not exist",
				goerr.V("bucket", b.bucket), goerr.V("object", b.object))
		}
		return nil, goerr.Wrap(err, "failed to open snapshot object",
			goerr.V("bucket", b.bucket), goerr.V("object", b.object))
	}
	defer safe.Close(ctx, r)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read snapshot object",
			goerr.V("bucket", b.bucket), goerr.V("object", b.object))
	}
	return data, nil
}

func (b *gcsBlob) write(ctx context.Context, data []byte) error {
	w := b.handle().NewWriter(ctx)
	if b.format == FormatYAML {
		w.ContentType = "application/yaml"
	} else {
		w.ContentType = "application/json"
	}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return goerr.Wrap(err, "failed to write snapshot object",
			goerr.V("bucket", b.bucket), goerr.V("object", b.object))
	}
	if err := w.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize snapshot object",
			goerr.V("bucket", b.bucket), goerr.V("object", b.object))
	}
	return nil
}

func (b *gcsBlob) close() error {
	if b.owned {
		return b.client.Close()
	}
	return nil
}

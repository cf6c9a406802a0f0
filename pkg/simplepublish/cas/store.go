package cas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/tendant/simple-publish/pkg/simplepublish"
	"github.com/tendant/simple-publish/pkg/simplepublish/urlstrategy"
	"go.uber.org/zap"
)

const (
	blobPrefix  = "blobs/"
	batchPrefix = "batches/"
)

// IndexEntry is one file listed in a batch index
type IndexEntry struct {
	Name     string `json:"name"`
	CID      string `json:"cid"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType,omitempty"`
}

// Index lists the files of a batch. Its canonical JSON encoding is what
// the batch identifier is computed from.
type Index struct {
	Files []IndexEntry `json:"files"`
}

// Store is a content-addressed store on top of a blob backend.
// It implements simplepublish.Uploader.
type Store struct {
	blobs  simplepublish.BlobStore
	urls   urlstrategy.URLStrategy
	logger *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a content-addressed store
func New(blobs simplepublish.BlobStore, urls urlstrategy.URLStrategy, opts ...Option) (*Store, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if urls == nil {
		return nil, errors.New("URL strategy is required")
	}

	s := &Store{
		blobs:  blobs,
		urls:   urls,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// UploadBatch stores every file and then the batch index. The reference is
// only returned once all writes succeeded.
func (s *Store) UploadBatch(ctx context.Context, files []simplepublish.File) (simplepublish.ContentReference, error) {
	if err := simplepublish.CheckBatch(files); err != nil {
		return simplepublish.ContentReference{}, &simplepublish.UploadError{Message: err.Error()}
	}

	index := Index{Files: make([]IndexEntry, 0, len(files))}
	for _, f := range files {
		index.Files = append(index.Files, IndexEntry{
			Name:     f.Name,
			CID:      Sum(f.Data),
			Size:     int64(len(f.Data)),
			MimeType: f.MimeType,
		})
	}
	sort.Slice(index.Files, func(i, j int) bool { return index.Files[i].Name < index.Files[j].Name })

	indexJSON, err := json.Marshal(index)
	if err != nil {
		return simplepublish.ContentReference{}, fmt.Errorf("failed to encode batch index: %w", err)
	}
	cid := Sum(indexJSON)

	// an index is only written after all of its files, so an existing index
	// means the identical batch is already complete
	if s.exists(ctx, blobPrefix+cid) {
		s.logger.Debug("batch already stored", zap.String("cid", cid))
		return s.reference(ctx, cid)
	}

	written := make([]string, 0, len(files))
	for _, f := range files {
		params := simplepublish.UploadParams{ObjectKey: fileKey(cid, f.Name), MimeType: f.MimeType}
		if err := s.blobs.UploadWithParams(ctx, bytes.NewReader(f.Data), params); err != nil {
			s.discard(ctx, written)
			return simplepublish.ContentReference{}, &simplepublish.UploadError{
				Message: fmt.Sprintf("failed to store %q", f.Name),
				Err:     err,
			}
		}
		written = append(written, params.ObjectKey)
	}

	// the index goes last: a batch is only resolvable once all files are stored
	if err := s.put(ctx, cid, indexJSON); err != nil {
		s.discard(ctx, written)
		return simplepublish.ContentReference{}, err
	}

	s.logger.Debug("stored batch", zap.String("cid", cid), zap.Int("files", len(files)))
	return s.reference(ctx, cid)
}

// UploadDocument stores the JSON encoding of document
func (s *Store) UploadDocument(ctx context.Context, document any) (simplepublish.ContentReference, error) {
	data, err := json.Marshal(document)
	if err != nil {
		return simplepublish.ContentReference{}, fmt.Errorf("failed to encode document: %w", err)
	}

	cid := Sum(data)
	if !s.exists(ctx, blobPrefix+cid) {
		if err := s.put(ctx, cid, data); err != nil {
			return simplepublish.ContentReference{}, err
		}
	}

	s.logger.Debug("stored document", zap.String("cid", cid), zap.Int("bytes", len(data)))
	return s.reference(ctx, cid)
}

// Fetch returns the document or batch index stored under cid
func (s *Store) Fetch(ctx context.Context, cid string) ([]byte, error) {
	if !ValidCID(cid) {
		return nil, simplepublish.ErrObjectNotFound
	}
	rc, err := s.blobs.Download(ctx, blobPrefix+cid)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// FetchIndex returns the file listing of the batch stored under cid
func (s *Store) FetchIndex(ctx context.Context, cid string) (*Index, error) {
	data, err := s.Fetch(ctx, cid)
	if err != nil {
		return nil, err
	}
	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("content %s is not a batch: %w", cid, err)
	}
	return &index, nil
}

// FetchFile opens one file of the batch stored under cid
func (s *Store) FetchFile(ctx context.Context, cid, name string) (io.ReadCloser, error) {
	if !ValidCID(cid) || simplepublish.CheckFileName(name) != nil {
		return nil, simplepublish.ErrObjectNotFound
	}
	return s.blobs.Download(ctx, fileKey(cid, name))
}

// exists reports whether key is already stored. Lookup failures count as
// missing so the write is attempted.
func (s *Store) exists(ctx context.Context, key string) bool {
	_, err := s.blobs.GetObjectMeta(ctx, key)
	if err != nil && !errors.Is(err, simplepublish.ErrObjectNotFound) {
		s.logger.Debug("object lookup failed", zap.String("key", key), zap.Error(err))
	}
	return err == nil
}

// discard removes the files of a batch that could not be completed
func (s *Store) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to remove partial batch file", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *Store) put(ctx context.Context, cid string, data []byte) error {
	params := simplepublish.UploadParams{ObjectKey: blobPrefix + cid, MimeType: "application/json"}
	if err := s.blobs.UploadWithParams(ctx, bytes.NewReader(data), params); err != nil {
		return &simplepublish.UploadError{Message: fmt.Sprintf("failed to store %s", cid), Err: err}
	}
	return nil
}

func (s *Store) reference(ctx context.Context, cid string) (simplepublish.ContentReference, error) {
	url, err := s.urls.GenerateURL(ctx, cid)
	if err != nil {
		return simplepublish.ContentReference{}, fmt.Errorf("failed to derive URL for %s: %w", cid, err)
	}
	return simplepublish.ContentReference{ContentID: cid, URL: url}, nil
}

func fileKey(cid, name string) string {
	return batchPrefix + cid + "/" + name
}

package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/repeale/fp-go/option"
)

var ErrReadOnly = fmt.Errorf("%w: asset is read-only", ErrAssetIO)

// FileResolver handles the "file" scheme. Absolute paths are used as they
// are. Relative paths are looked up in each root in order; if none of them
// has the file, it belongs to the first root so that new assets can be
// written there.
type FileResolver struct {
	roots []string
}

func NewFileResolver(roots ...string) *FileResolver {
	return &FileResolver{roots: roots}
}

func (f *FileResolver) Resolvable(descriptor Descriptor) bool {
	return descriptor.Scheme() == "file"
}

func (f *FileResolver) Resolve(descriptor Descriptor) (*Handle, error) {
	path := descriptor.Path()
	if path == "" {
		return nil, fmt.Errorf("%w: %s has no path", ErrInvalidArgument, descriptor)
	}

	return NewHandle(descriptor, FileStream(f.locate(filepath.FromSlash(path)))), nil
}

func (f *FileResolver) locate(path string) string {
	if filepath.IsAbs(path) || len(f.roots) == 0 {
		return path
	}

	found := Find(func(root string) bool {
		return FileExists(filepath.Join(root, path))
	})(f.roots)
	if opt.IsSome(found) {
		return filepath.Join(found.Value, path)
	}

	return filepath.Join(f.roots[0], path)
}

// FileStream is a path on the local filesystem.
type FileStream string

func (f FileStream) Open(ctx context.Context) (io.ReadCloser, error) {
	return os.Open(string(f))
}

func (f FileStream) Create(ctx context.Context) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(string(f)), 0755); err != nil {
		return nil, err
	}
	return os.Create(string(f))
}

func (f FileStream) Size(ctx context.Context) (int64, error) {
	info, err := os.Stat(string(f))
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// ResourceResolver serves read-only assets bundled into the binary, such as
// an embed.FS. "res:/core/startup.prg" maps to "core/startup.prg".
type ResourceResolver struct {
	scheme string
	files  fs.FS
}

func NewResourceResolver(scheme string, files fs.FS) *ResourceResolver {
	return &ResourceResolver{
		scheme: strings.ToLower(scheme),
		files:  files,
	}
}

func (r *ResourceResolver) Resolvable(descriptor Descriptor) bool {
	return descriptor.Scheme() == r.scheme
}

func (r *ResourceResolver) Resolve(descriptor Descriptor) (*Handle, error) {
	path := strings.TrimPrefix(descriptor.Path(), "/")
	if !fs.ValidPath(path) {
		return nil, fmt.Errorf("%w: invalid resource path %q", ErrInvalidArgument, path)
	}

	return NewHandle(descriptor, &resourceStream{
		files: r.files,
		path:  path,
	}), nil
}

type resourceStream struct {
	files fs.FS
	path  string
}

func (r *resourceStream) Open(ctx context.Context) (io.ReadCloser, error) {
	return r.files.Open(r.path)
}

func (r *resourceStream) Create(ctx context.Context) (io.WriteCloser, error) {
	return nil, ErrReadOnly
}

func (r *resourceStream) Size(ctx context.Context) (int64, error) {
	info, err := fs.Stat(r.files, r.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// StoreResolver exposes a Store under a scheme. The key is the descriptor
// path without leading slashes, so "cache:maps/town.brd" and
// "cache:///maps/town.brd" name the same blob.
type StoreResolver struct {
	scheme string
	store  Store
}

func NewStoreResolver(scheme string, store Store) *StoreResolver {
	return &StoreResolver{
		scheme: strings.ToLower(scheme),
		store:  store,
	}
}

func (s *StoreResolver) Resolvable(descriptor Descriptor) bool {
	return descriptor.Scheme() == s.scheme
}

func (s *StoreResolver) Resolve(descriptor Descriptor) (*Handle, error) {
	key := strings.TrimLeft(descriptor.Path(), "/")
	if key == "" {
		return nil, fmt.Errorf("%w: %s has no key", ErrInvalidArgument, descriptor)
	}

	return NewHandle(descriptor, &storeStream{
		store: s.store,
		key:   key,
	}), nil
}

type storeStream struct {
	store Store
	key   string
}

func (s *storeStream) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *storeStream) Create(ctx context.Context) (io.WriteCloser, error) {
	return &storeWriter{
		ctx:   ctx,
		store: s.store,
		key:   s.key,
	}, nil
}

func (s *storeStream) Size(ctx context.Context) (int64, error) {
	data, err := s.store.Get(ctx, s.key)
	if err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

// storeWriter buffers everything and hands it to the store on Close.
type storeWriter struct {
	ctx    context.Context
	store  Store
	key    string
	buffer bytes.Buffer
	closed bool
}

func (s *storeWriter) Write(p []byte) (int, error) {
	if s.closed {
		return 0, os.ErrClosed
	}
	return s.buffer.Write(p)
}

// Abort closes the writer without storing anything.
func (s *storeWriter) Abort() error {
	s.closed = true
	s.buffer.Reset()
	return nil
}

func (s *storeWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.store.Set(s.ctx, s.key, s.buffer.Bytes())
}

var _ Resolver = (*FileResolver)(nil)
var _ Resolver = (*ResourceResolver)(nil)
var _ Resolver = (*StoreResolver)(nil)

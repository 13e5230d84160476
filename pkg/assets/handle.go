package assets

import (
	"context"
	"fmt"
	"io"

	"github.com/sasha-s/go-deadlock"
)

// Stream is the storage side of a handle. Either direction may be
// unsupported, in which case it returns an error instead of a stream.
type Stream interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	Create(ctx context.Context) (io.WriteCloser, error)
	Size(ctx context.Context) (int64, error)
}

// Handle binds a descriptor to an optional in-memory asset and to the stream
// it is read from and written to. A handle belongs to exactly one descriptor
// for its whole life.
type Handle struct {
	descriptor Descriptor
	stream     Stream

	mutex deadlock.RWMutex
	asset Asset
}

func NewHandle(descriptor Descriptor, stream Stream) *Handle {
	return &Handle{
		descriptor: descriptor,
		stream:     stream,
	}
}

func (h *Handle) Descriptor() Descriptor {
	return h.descriptor
}

// Asset returns nil until an asset has been set or decoded.
func (h *Handle) Asset() Asset {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.asset
}

func (h *Handle) SetAsset(asset Asset) {
	h.mutex.Lock()
	h.asset = asset
	h.mutex.Unlock()
}

func (h *Handle) HasAsset() bool {
	return h.Asset() != nil
}

// Reader opens the handle for reading. The caller owns the returned stream
// and must close it.
func (h *Handle) Reader(ctx context.Context) (io.ReadCloser, error) {
	reader, err := h.stream.Open(ctx)
	if err != nil {
		return nil, ioFailure("open", h.descriptor, err)
	}
	return reader, nil
}

// Writer opens the handle for writing. Data is only guaranteed to be
// persisted once Close returns without error.
func (h *Handle) Writer(ctx context.Context) (io.WriteCloser, error) {
	writer, err := h.stream.Create(ctx)
	if err != nil {
		return nil, ioFailure("create", h.descriptor, err)
	}
	return writer, nil
}

// Abort gives up on a writer obtained from Writer after a failed encode.
// Writers that only commit on Close, such as store writers, drop what they
// buffered; anything else is closed.
func Abort(writer io.WriteCloser) error {
	if aborter, ok := writer.(interface{ Abort() error }); ok {
		return aborter.Abort()
	}
	return writer.Close()
}

func (h *Handle) Size(ctx context.Context) (int64, error) {
	size, err := h.stream.Size(ctx)
	if err != nil {
		return 0, ioFailure("stat", h.descriptor, err)
	}
	return size, nil
}

func (h *Handle) String() string {
	return fmt.Sprintf("handle(%s)", h.descriptor)
}

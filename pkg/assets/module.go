package assets

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rpgtoolkit/toolkit/pkg/binio"

	"github.com/repeale/fp-go/option"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
)

var (
	ErrInvalidArgument          = errors.New("invalid argument")
	ErrResolutionFailure        = errors.New("no resolver for asset")
	ErrAssetIO                  = errors.New("asset i/o failure")
	ErrSerializationUnsupported = errors.New("no serializer for asset")
	// ErrCorruptAsset is returned when stored data does not match the layout
	// a serializer expects.
	ErrCorruptAsset = binio.ErrCorrupt
)

func ioFailure(op string, descriptor Descriptor, err error) error {
	if errors.Is(err, ErrAssetIO) {
		return fmt.Errorf("%s %s: %w", op, descriptor, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrAssetIO, op, descriptor, err)
}

// Resolver turns descriptors into handles. Resolve is only called after
// Resolvable returned true for the same descriptor.
type Resolver interface {
	Resolvable(descriptor Descriptor) bool
	Resolve(descriptor Descriptor) (*Handle, error)
}

// Serializer moves assets between a handle's stream and memory. Serializers
// with a lower Priority are consulted first.
type Serializer interface {
	Priority() int
	Serializable(descriptor Descriptor) bool
	Deserializable(descriptor Descriptor) bool
	Serialize(ctx context.Context, handle *Handle) error
	Deserialize(ctx context.Context, handle *Handle) error
}

// Registry resolves, loads and stores assets, and caches every handle that
// holds an asset for as long as the registry lives. Resolvers are tried in
// the order they were registered. Serializers are tried in ascending
// priority, then in the order they were registered.
//
// A Registry is safe for concurrent use. Resolvers and serializers are
// expected to be registered at startup, before the registry is shared.
type Registry struct {
	mutex       deadlock.RWMutex
	resolvers   []Resolver
	serializers []Serializer
	// descriptor -> handle
	assets map[Descriptor]*Handle
}

func NewRegistry() *Registry {
	return &Registry{
		resolvers:   make([]Resolver, 0),
		serializers: make([]Serializer, 0),
		assets:      make(map[Descriptor]*Handle),
	}
}

func (r *Registry) Logger() zerolog.Logger {
	return log.With().Str("service", "assets").Logger()
}

func (r *Registry) RegisterResolver(resolver Resolver) error {
	if resolver == nil {
		return fmt.Errorf("%w: nil resolver", ErrInvalidArgument)
	}

	r.mutex.Lock()
	r.resolvers = append(r.resolvers, resolver)
	r.mutex.Unlock()
	return nil
}

func (r *Registry) RegisterSerializer(serializer Serializer) error {
	if serializer == nil {
		return fmt.Errorf("%w: nil serializer", ErrInvalidArgument)
	}

	priority := serializer.Priority()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// After every serializer with the same priority, so ties keep
	// registration order.
	index := sort.Search(len(r.serializers), func(i int) bool {
		return r.serializers[i].Priority() > priority
	})
	r.serializers = append(r.serializers, nil)
	copy(r.serializers[index+1:], r.serializers[index:])
	r.serializers[index] = serializer
	return nil
}

// Count is the number of cached handles.
func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.assets)
}

// Cached returns the cached handle for a descriptor, if any, without doing
// any I/O.
func (r *Registry) Cached(descriptor Descriptor) opt.Option[*Handle] {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	if handle, ok := r.assets[descriptor]; ok {
		return opt.Some(handle)
	}
	return opt.None[*Handle]()
}

// keep caches handle unless another handle got there first, and returns
// whichever one is cached.
func (r *Registry) keep(handle *Handle) *Handle {
	descriptor := handle.Descriptor()

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if existing, ok := r.assets[descriptor]; ok {
		return existing
	}
	r.assets[descriptor] = handle
	return handle
}

func (r *Registry) resolve(descriptor Descriptor) (*Handle, error) {
	r.mutex.RLock()
	resolvers := r.resolvers
	r.mutex.RUnlock()

	for _, resolver := range resolvers {
		if !resolver.Resolvable(descriptor) {
			continue
		}

		// The first resolver that claims a descriptor owns it, even if
		// it then fails.
		handle, err := resolver.Resolve(descriptor)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrResolutionFailure, descriptor, err)
		}
		if handle == nil {
			return nil, fmt.Errorf("%w: %s: resolver returned no handle", ErrResolutionFailure, descriptor)
		}

		logger := r.Logger()
		logger.Debug().Str("descriptor", descriptor.String()).Msgf("resolved with %T", resolver)
		return handle, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrResolutionFailure, descriptor)
}

func (r *Registry) findSerializer(match func(Serializer) bool) Serializer {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, serializer := range r.serializers {
		if match(serializer) {
			return serializer
		}
	}

	return nil
}

// GetHandle returns the handle for an in-memory asset, resolving one if the
// asset's descriptor is not cached yet, and attaches the asset to it. No
// stream is opened.
func (r *Registry) GetHandle(asset Asset) (*Handle, error) {
	if asset == nil {
		return nil, fmt.Errorf("%w: nil asset", ErrInvalidArgument)
	}

	descriptor := asset.Descriptor()

	handle, err := r.handleFor(descriptor)
	if err != nil {
		return nil, err
	}

	handle.SetAsset(asset)
	return handle, nil
}

func (r *Registry) handleFor(descriptor Descriptor) (*Handle, error) {
	cached := r.Cached(descriptor)
	if opt.IsSome(cached) {
		return cached.Value, nil
	}

	handle, err := r.resolve(descriptor)
	if err != nil {
		return nil, err
	}

	return r.keep(handle), nil
}

// Serialize writes the handle's asset through the first serializer that
// accepts its descriptor. A handle holding an asset replaces whatever handle
// was cached for its descriptor.
//
// If no serializer accepts the descriptor, the handle is returned untouched
// along with ErrSerializationUnsupported.
func (r *Registry) Serialize(ctx context.Context, handle *Handle) (*Handle, error) {
	if handle == nil {
		return nil, fmt.Errorf("%w: nil handle", ErrInvalidArgument)
	}

	descriptor := handle.Descriptor()
	logger := r.Logger().With().Str("descriptor", descriptor.String()).Logger()

	if handle.HasAsset() {
		r.mutex.Lock()
		r.assets[descriptor] = handle
		r.mutex.Unlock()
	}

	serializer := r.findSerializer(func(s Serializer) bool {
		return s.Serializable(descriptor)
	})
	if serializer == nil {
		logger.Debug().Msg("no serializer, skipping")
		return handle, fmt.Errorf("%w: %s", ErrSerializationUnsupported, descriptor)
	}

	logger.Debug().Msgf("serializing with %T", serializer)
	if err := serializer.Serialize(ctx, handle); err != nil {
		return handle, ioFailure("serialize", descriptor, err)
	}

	return handle, nil
}

// Deserialize loads the asset named by descriptor. Once an asset has been
// loaded, later calls return the same handle without touching any resolver,
// serializer or stream.
//
// If no resolver claims the descriptor, nil and ErrResolutionFailure are
// returned and nothing is cached. If no serializer accepts it, the resolved
// but empty handle is returned along with ErrSerializationUnsupported; empty
// handles are never cached, so a serializer registered later still gets a
// chance.
func (r *Registry) Deserialize(ctx context.Context, descriptor Descriptor) (*Handle, error) {
	logger := r.Logger().With().Str("descriptor", descriptor.String()).Logger()

	cached := r.Cached(descriptor)
	if opt.IsSome(cached) {
		logger.Debug().Msg("cache hit")
		return cached.Value, nil
	}

	handle, err := r.resolve(descriptor)
	if err != nil {
		return nil, err
	}

	serializer := r.findSerializer(func(s Serializer) bool {
		return s.Deserializable(descriptor)
	})
	if serializer == nil {
		logger.Debug().Msg("no deserializer")
		return handle, fmt.Errorf("%w: %s", ErrSerializationUnsupported, descriptor)
	}

	logger.Debug().Msgf("deserializing with %T", serializer)
	if err := serializer.Deserialize(ctx, handle); err != nil {
		return nil, fmt.Errorf("deserialize %s: %w", descriptor, err)
	}

	if !handle.HasAsset() {
		return handle, nil
	}

	return r.keep(handle), nil
}

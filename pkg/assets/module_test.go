package assets

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rpgtoolkit/toolkit/pkg/binio"

	"github.com/repeale/fp-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Base
	Value int16
	Text  string
}

type memoryStream struct {
	mutex   sync.Mutex
	data    []byte
	opens   int
	written bytes.Buffer
}

type closer struct {
	io.Writer
}

func (closer) Close() error { return nil }

func (m *memoryStream) Open(ctx context.Context) (io.ReadCloser, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.opens++
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

func (m *memoryStream) Create(ctx context.Context) (io.WriteCloser, error) {
	return closer{&m.written}, nil
}

func (m *memoryStream) Size(ctx context.Context) (int64, error) {
	return int64(len(m.data)), nil
}

type fakeResolver struct {
	mutex    sync.Mutex
	scheme   string
	stream   Stream
	err      error
	resolves int
}

func (f *fakeResolver) Resolvable(descriptor Descriptor) bool {
	return descriptor.Scheme() == f.scheme
}

func (f *fakeResolver) Resolve(descriptor Descriptor) (*Handle, error) {
	f.mutex.Lock()
	f.resolves++
	f.mutex.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return NewHandle(descriptor, f.stream), nil
}

// recordSerializer reads an int16 followed by a string.
type recordSerializer struct {
	mutex      sync.Mutex
	priority   int
	ext        string
	serializes int
	reads      int
	skipAsset  bool
}

func (r *recordSerializer) Priority() int { return r.priority }

func (r *recordSerializer) Serializable(descriptor Descriptor) bool {
	return descriptor.HasExt(r.ext)
}

func (r *recordSerializer) Deserializable(descriptor Descriptor) bool {
	return descriptor.HasExt(r.ext)
}

func (r *recordSerializer) Serialize(ctx context.Context, handle *Handle) error {
	r.mutex.Lock()
	r.serializes++
	r.mutex.Unlock()

	value, ok := handle.Asset().(*record)
	if !ok {
		return errors.New("not a record")
	}

	writer, err := handle.Writer(ctx)
	if err != nil {
		return err
	}

	out := binio.NewWriter(writer)
	if err := out.Put(value.Value, value.Text); err != nil {
		Abort(writer)
		return err
	}
	return out.Close()
}

func (r *recordSerializer) Deserialize(ctx context.Context, handle *Handle) error {
	r.mutex.Lock()
	r.reads++
	r.mutex.Unlock()

	reader, err := handle.Reader(ctx)
	if err != nil {
		return err
	}

	in := binio.NewReader(reader)
	defer in.Close()

	value := record{Base: NewBase(handle.Descriptor())}
	if err := in.Get(&value.Value, &value.Text); err != nil {
		return err
	}

	if !r.skipAsset {
		handle.SetAsset(&value)
	}
	return nil
}

func newRegistry(t *testing.T, resolvers []Resolver, serializers []Serializer) *Registry {
	registry := NewRegistry()
	for _, resolver := range resolvers {
		require.NoError(t, registry.RegisterResolver(resolver))
	}
	for _, serializer := range serializers {
		require.NoError(t, registry.RegisterSerializer(serializer))
	}
	return registry
}

var recordBytes = []byte{0x2a, 0x00, 'H', 'i', 0x00}

func TestFileScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.rec")
	require.NoError(t, os.WriteFile(path, recordBytes, 0644))

	registry := newRegistry(t,
		[]Resolver{NewFileResolver(dir)},
		[]Serializer{&recordSerializer{priority: 0, ext: ".rec"}},
	)

	handle, err := registry.Deserialize(context.Background(), MustParseDescriptor("file:hello.rec"))
	require.NoError(t, err)

	value, ok := handle.Asset().(*record)
	require.True(t, ok)
	assert.Equal(t, int16(42), value.Value)
	assert.Equal(t, "Hi", value.Text)
	assert.Equal(t, 1, registry.Count())
}

func TestDeserializeIdempotent(t *testing.T) {
	stream := &memoryStream{data: recordBytes}
	resolver := &fakeResolver{scheme: "mem", stream: stream}
	serializer := &recordSerializer{ext: ".rec"}
	registry := newRegistry(t, []Resolver{resolver}, []Serializer{serializer})

	d := MustParseDescriptor("mem:a.rec")
	first, err := registry.Deserialize(context.Background(), d)
	require.NoError(t, err)
	second, err := registry.Deserialize(context.Background(), d)
	require.NoError(t, err)

	assert.Same(t, first, second)

	// same asset through an upper case scheme
	upper, err := registry.Deserialize(context.Background(), MustParseDescriptor("MEM:a.rec"))
	require.NoError(t, err)
	assert.Same(t, first, upper)
	assert.Equal(t, 1, registry.Count())

	assert.Equal(t, 1, resolver.resolves)
	assert.Equal(t, 1, serializer.reads)
	assert.Equal(t, 1, stream.opens)
}

func TestResolverOrder(t *testing.T) {
	first := &fakeResolver{scheme: "mem", stream: &memoryStream{data: recordBytes}}
	otherData := []byte{0x01, 0x00, 0x00}
	second := &fakeResolver{scheme: "mem", stream: &memoryStream{data: otherData}}
	third := &fakeResolver{scheme: "mem", stream: &memoryStream{data: otherData}}

	registry := newRegistry(t,
		[]Resolver{first, second, third},
		[]Serializer{&recordSerializer{ext: ".rec"}},
	)

	handle, err := registry.Deserialize(context.Background(), MustParseDescriptor("mem:a.rec"))
	require.NoError(t, err)
	assert.Equal(t, int16(42), handle.Asset().(*record).Value)
	assert.Equal(t, 1, first.resolves)
	assert.Equal(t, 0, second.resolves)
	assert.Equal(t, 0, third.resolves)
}

func TestResolverFailureHasNoFallback(t *testing.T) {
	broken := &fakeResolver{scheme: "mem", err: errors.New("boom")}
	working := &fakeResolver{scheme: "mem", stream: &memoryStream{data: recordBytes}}

	registry := newRegistry(t,
		[]Resolver{broken, working},
		[]Serializer{&recordSerializer{ext: ".rec"}},
	)

	handle, err := registry.Deserialize(context.Background(), MustParseDescriptor("mem:a.rec"))
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrResolutionFailure)
	assert.Equal(t, 0, working.resolves)
}

func TestSerializerPriority(t *testing.T) {
	resolver := &fakeResolver{scheme: "mem", stream: &memoryStream{data: recordBytes}}
	low := &recordSerializer{priority: 2, ext: ".rec"}
	high := &recordSerializer{priority: 1, ext: ".rec"}
	tie := &recordSerializer{priority: 1, ext: ".rec"}

	// registered out of order on purpose
	registry := newRegistry(t, []Resolver{resolver}, []Serializer{low, high, tie})

	_, err := registry.Deserialize(context.Background(), MustParseDescriptor("mem:a.rec"))
	require.NoError(t, err)
	assert.Equal(t, 1, high.reads)
	assert.Equal(t, 0, tie.reads)
	assert.Equal(t, 0, low.reads)
}

func TestSerializerOrdering(t *testing.T) {
	a := &recordSerializer{priority: 5, ext: ".a"}
	b := &recordSerializer{priority: 0, ext: ".b"}
	c := &recordSerializer{priority: 5, ext: ".c"}
	d := &recordSerializer{priority: -3, ext: ".d"}
	e := &recordSerializer{priority: 0, ext: ".e"}

	registry := newRegistry(t, nil, []Serializer{a, b, c, d, e})
	assert.Equal(t, []Serializer{d, b, e, a, c}, registry.serializers)
}

func TestUnknownScheme(t *testing.T) {
	registry := newRegistry(t,
		[]Resolver{NewFileResolver(t.TempDir())},
		[]Serializer{&recordSerializer{ext: ".rec"}},
	)

	d := MustParseDescriptor("http://example.com/a.rec")
	handle, err := registry.Deserialize(context.Background(), d)
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrResolutionFailure)
	assert.True(t, opt.IsNone(registry.Cached(d)))
	assert.Equal(t, 0, registry.Count())

	// a resolver registered later gets its chance
	require.NoError(t, registry.RegisterResolver(&fakeResolver{
		scheme: "http",
		stream: &memoryStream{data: recordBytes},
	}))
	handle, err = registry.Deserialize(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, handle.HasAsset())
}

func TestEmptyHandlesAreNotCached(t *testing.T) {
	resolver := &fakeResolver{scheme: "mem", stream: &memoryStream{data: recordBytes}}
	registry := newRegistry(t, []Resolver{resolver}, nil)

	d := MustParseDescriptor("mem:a.rec")
	handle, err := registry.Deserialize(context.Background(), d)
	assert.ErrorIs(t, err, ErrSerializationUnsupported)
	require.NotNil(t, handle)
	assert.False(t, handle.HasAsset())
	assert.Equal(t, 0, registry.Count())

	// a serializer that decodes but never sets the asset
	lazy := &recordSerializer{ext: ".rec", skipAsset: true}
	require.NoError(t, registry.RegisterSerializer(lazy))
	handle, err = registry.Deserialize(context.Background(), d)
	require.NoError(t, err)
	assert.False(t, handle.HasAsset())
	assert.Equal(t, 0, registry.Count())

	_, err = registry.Deserialize(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, 3, resolver.resolves)
	assert.Equal(t, 2, lazy.reads)
}

func TestCorruptAsset(t *testing.T) {
	// no string terminator
	resolver := &fakeResolver{scheme: "mem", stream: &memoryStream{data: []byte{0x2a, 0x00, 'H', 'i'}}}
	registry := newRegistry(t, []Resolver{resolver}, []Serializer{&recordSerializer{ext: ".rec"}})

	d := MustParseDescriptor("mem:a.rec")
	handle, err := registry.Deserialize(context.Background(), d)
	assert.Nil(t, handle)
	assert.ErrorIs(t, err, ErrCorruptAsset)
	assert.True(t, opt.IsNone(registry.Cached(d)))
}

func TestGetHandle(t *testing.T) {
	resolver := &fakeResolver{scheme: "mem", stream: &memoryStream{}}
	registry := newRegistry(t, []Resolver{resolver}, nil)

	_, err := registry.GetHandle(nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	a := &record{Base: NewBase(MustParseDescriptor("mem:a.rec"))}
	b := &record{Base: NewBase(MustParseDescriptor("mem:b.rec"))}

	handleA, err := registry.GetHandle(a)
	require.NoError(t, err)
	handleB, err := registry.GetHandle(b)
	require.NoError(t, err)

	assert.NotSame(t, handleA, handleB)
	assert.Same(t, a, handleA.Asset())
	assert.Same(t, b, handleB.Asset())
	assert.Equal(t, 2, registry.Count())

	// same descriptor reuses the handle and swaps the asset
	replacement := &record{Base: NewBase(a.Descriptor()), Value: 9}
	again, err := registry.GetHandle(replacement)
	require.NoError(t, err)
	assert.Same(t, handleA, again)
	assert.Same(t, replacement, again.Asset())
	assert.Equal(t, 2, resolver.resolves)

	_, err = registry.GetHandle(&record{Base: NewBase(MustParseDescriptor("nope:x"))})
	assert.ErrorIs(t, err, ErrResolutionFailure)
}

func TestSerialize(t *testing.T) {
	stream := &memoryStream{}
	serializer := &recordSerializer{ext: ".rec"}
	registry := newRegistry(t, []Resolver{&fakeResolver{scheme: "mem", stream: stream}}, []Serializer{serializer})

	_, err := registry.Serialize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	d := MustParseDescriptor("mem:a.rec")
	handle := NewHandle(d, stream)
	handle.SetAsset(&record{Base: NewBase(d), Value: 42, Text: "Hi"})

	result, err := registry.Serialize(context.Background(), handle)
	require.NoError(t, err)
	assert.Same(t, handle, result)
	assert.Equal(t, recordBytes, stream.written.Bytes())

	// last write wins in the cache
	cached := registry.Cached(d)
	require.True(t, opt.IsSome(cached))
	assert.Same(t, handle, cached.Value)

	other := NewHandle(d, stream)
	other.SetAsset(&record{Base: NewBase(d)})
	_, err = registry.Serialize(context.Background(), other)
	require.NoError(t, err)
	assert.Same(t, other, registry.Cached(d).Value)
	assert.Equal(t, 2, serializer.serializes)
}

func TestSerializeUnsupported(t *testing.T) {
	registry := newRegistry(t, nil, []Serializer{&recordSerializer{ext: ".rec"}})

	d := MustParseDescriptor("mem:a.txt")
	handle := NewHandle(d, &memoryStream{})
	result, err := registry.Serialize(context.Background(), handle)
	assert.ErrorIs(t, err, ErrSerializationUnsupported)
	assert.Same(t, handle, result)

	// handles without an asset leave the cache alone
	assert.Equal(t, 0, registry.Count())
}

func TestSerializeReadOnly(t *testing.T) {
	registry := newRegistry(t, nil, []Serializer{&recordSerializer{ext: ".rec"}})

	d := MustParseDescriptor("res:/a.rec")
	handle, err := NewResourceResolver("res", os.DirFS(t.TempDir())).Resolve(d)
	require.NoError(t, err)
	handle.SetAsset(&record{Base: NewBase(d)})

	_, err = registry.Serialize(context.Background(), handle)
	assert.ErrorIs(t, err, ErrAssetIO)
	assert.ErrorIs(t, err, ErrReadOnly)
}

func TestRegisterNil(t *testing.T) {
	registry := NewRegistry()
	assert.ErrorIs(t, registry.RegisterResolver(nil), ErrInvalidArgument)
	assert.ErrorIs(t, registry.RegisterSerializer(nil), ErrInvalidArgument)
}

func TestConcurrentDeserialize(t *testing.T) {
	resolver := &fakeResolver{scheme: "mem", stream: &memoryStream{data: recordBytes}}
	registry := newRegistry(t, []Resolver{resolver}, []Serializer{&recordSerializer{ext: ".rec"}})

	d := MustParseDescriptor("mem:a.rec")
	handles := make([]*Handle, 16)

	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handle, err := registry.Deserialize(context.Background(), d)
			assert.NoError(t, err)
			handles[i] = handle
		}(i)
	}
	wg.Wait()

	for _, handle := range handles {
		assert.Same(t, handles[0], handle)
	}
	assert.Equal(t, 1, registry.Count())
}

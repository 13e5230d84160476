// Package catalog stores a project's asset listing as CBOR.
package catalog

import (
	"context"
	"fmt"

	"github.com/rpgtoolkit/toolkit/pkg/assets"

	"github.com/fxamacker/cbor/v2"
)

const (
	EXTENSION = ".cat"
	PRIORITY  = 20
)

type Entry struct {
	_          struct{} `cbor:",toarray"`
	Descriptor string
	Kind       string
}

type document struct {
	Entries []Entry
}

type Catalog struct {
	assets.Base
	Entries []Entry
}

func New(descriptor assets.Descriptor) *Catalog {
	return &Catalog{
		Base:    assets.NewBase(descriptor),
		Entries: make([]Entry, 0),
	}
}

// Add lists an asset, replacing the kind if it is already listed.
func (c *Catalog) Add(descriptor assets.Descriptor, kind string) {
	for i, entry := range c.Entries {
		if entry.Descriptor == descriptor.String() {
			c.Entries[i].Kind = kind
			return
		}
	}

	c.Entries = append(c.Entries, Entry{
		Descriptor: descriptor.String(),
		Kind:       kind,
	})
}

// Of returns the descriptors of every entry of the given kind.
func (c *Catalog) Of(kind string) ([]assets.Descriptor, error) {
	descriptors := make([]assets.Descriptor, 0)
	for _, entry := range c.Entries {
		if entry.Kind != kind {
			continue
		}

		descriptor, err := assets.ParseDescriptor(entry.Descriptor)
		if err != nil {
			return nil, err
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

type Serializer struct{}

func (Serializer) Priority() int {
	return PRIORITY
}

func (Serializer) Serializable(descriptor assets.Descriptor) bool {
	return descriptor.HasExt(EXTENSION)
}

func (Serializer) Deserializable(descriptor assets.Descriptor) bool {
	return descriptor.HasExt(EXTENSION)
}

func (Serializer) Deserialize(ctx context.Context, handle *assets.Handle) error {
	reader, err := handle.Reader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()

	var doc document
	if err := cbor.NewDecoder(reader).Decode(&doc); err != nil {
		return fmt.Errorf("%w: %w", assets.ErrCorruptAsset, err)
	}

	catalog := New(handle.Descriptor())
	catalog.Entries = append(catalog.Entries, doc.Entries...)
	handle.SetAsset(catalog)
	return nil
}

func (Serializer) Serialize(ctx context.Context, handle *assets.Handle) error {
	catalog, ok := handle.Asset().(*Catalog)
	if !ok {
		return fmt.Errorf("%w: %T is not a catalog", assets.ErrInvalidArgument, handle.Asset())
	}

	writer, err := handle.Writer(ctx)
	if err != nil {
		return err
	}

	err = cbor.NewEncoder(writer).Encode(document{Entries: catalog.Entries})
	if err != nil {
		assets.Abort(writer)
		return err
	}

	return writer.Close()
}

var _ assets.Serializer = Serializer{}

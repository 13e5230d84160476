// Package program loads and saves interpreter programs, which are plain text.
package program

import (
	"context"
	"fmt"
	"io"

	"github.com/rpgtoolkit/toolkit/pkg/assets"
)

const (
	EXTENSION = ".prg"
	PRIORITY  = 10
)

type Program struct {
	assets.Base
	Text string
}

func New(descriptor assets.Descriptor, text string) *Program {
	return &Program{
		Base: assets.NewBase(descriptor),
		Text: text,
	}
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

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("%w: %w", assets.ErrAssetIO, err)
	}

	handle.SetAsset(New(handle.Descriptor(), string(data)))
	return nil
}

func (Serializer) Serialize(ctx context.Context, handle *assets.Handle) error {
	program, ok := handle.Asset().(*Program)
	if !ok {
		return fmt.Errorf("%w: %T is not a program", assets.ErrInvalidArgument, handle.Asset())
	}

	writer, err := handle.Writer(ctx)
	if err != nil {
		return err
	}

	_, err = io.WriteString(writer, program.Text)
	if err != nil {
		assets.Abort(writer)
		return err
	}

	return writer.Close()
}

var _ assets.Serializer = Serializer{}

// Package statuseffect reads and writes status effect records in the legacy
// binary layout.
//
// A record is, in order: the header string, major and minor version
// (integers), name (string), rounds, HP and SMP change per round (integers),
// the speed, slow and disable flags (integers, non-zero is set) and the
// program run each round (string).
package statuseffect

import (
	"context"
	"fmt"

	"github.com/rpgtoolkit/toolkit/pkg/assets"
	"github.com/rpgtoolkit/toolkit/pkg/binio"
)

const (
	HEADER        = "RPGTLKIT STATUSE"
	MAJOR_VERSION = 2
	MINOR_VERSION = 1
	EXTENSION     = ".ste"
	PRIORITY      = 0
)

type StatusEffect struct {
	assets.Base

	Name string
	// Number of rounds the effect lasts, 0 means until cured.
	Rounds int16
	// Change applied every round.
	HP  int16
	SMP int16

	Speed   bool
	Slow    bool
	Disable bool

	Program string
}

func New(descriptor assets.Descriptor) *StatusEffect {
	return &StatusEffect{Base: assets.NewBase(descriptor)}
}

func toFlag(value bool) int16 {
	if value {
		return 1
	}
	return 0
}

// Decode reads one record. The effect keeps its descriptor.
func (s *StatusEffect) Decode(r *binio.Reader) error {
	header, err := r.ReadString()
	if err != nil {
		return err
	}
	if header != HEADER {
		return fmt.Errorf("%w: not a status effect (header %q)", assets.ErrCorruptAsset, header)
	}

	var major, minor int16
	if err := r.Get(&major, &minor); err != nil {
		return err
	}
	if major != MAJOR_VERSION {
		return fmt.Errorf("%w: unsupported status effect version %d.%d", assets.ErrCorruptAsset, major, minor)
	}

	var speed, slow, disable int16
	err = r.Get(
		&s.Name,
		&s.Rounds,
		&s.HP,
		&s.SMP,
		&speed,
		&slow,
		&disable,
		&s.Program,
	)
	if err != nil {
		return err
	}

	s.Speed = speed != 0
	s.Slow = slow != 0
	s.Disable = disable != 0
	return nil
}

func (s *StatusEffect) Encode(w *binio.Writer) error {
	return w.Put(
		HEADER,
		int16(MAJOR_VERSION),
		int16(MINOR_VERSION),
		s.Name,
		s.Rounds,
		s.HP,
		s.SMP,
		toFlag(s.Speed),
		toFlag(s.Slow),
		toFlag(s.Disable),
		s.Program,
	)
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

	r := binio.NewReader(reader)
	defer r.Close()

	effect := New(handle.Descriptor())
	if err := effect.Decode(r); err != nil {
		return err
	}

	handle.SetAsset(effect)
	return nil
}

func (Serializer) Serialize(ctx context.Context, handle *assets.Handle) error {
	effect, ok := handle.Asset().(*StatusEffect)
	if !ok {
		return fmt.Errorf("%w: %T is not a status effect", assets.ErrInvalidArgument, handle.Asset())
	}

	writer, err := handle.Writer(ctx)
	if err != nil {
		return err
	}

	w := binio.NewWriter(writer)
	if err := effect.Encode(w); err != nil {
		assets.Abort(writer)
		return err
	}

	return w.Close()
}

var _ assets.Serializer = Serializer{}

package assets

import (
	"fmt"
	"path"
	"strings"
)

// Asset is any in-memory value the registry manages. The registry never
// looks inside it; the descriptor is all it needs.
type Asset interface {
	Descriptor() Descriptor
}

// Base can be embedded by asset types to satisfy Asset.
type Base struct {
	descriptor Descriptor
}

func NewBase(descriptor Descriptor) Base {
	return Base{descriptor: descriptor}
}

func (b Base) Descriptor() Descriptor {
	return b.descriptor
}

// Descriptor names an asset with a URI-like identifier such as
// "file:boards/town.brd" or "res:/core/programs/startup.prg". The scheme
// selects the resolver, everything after it is up to that resolver.
//
// Descriptors are comparable and two of them are equal exactly when their
// identifiers are, ignoring the case of the scheme, so they can be used
// directly as map keys. String returns the identifier with a lower case
// scheme.
type Descriptor struct {
	uri    string
	scheme string
}

func validScheme(scheme string) bool {
	if scheme == "" {
		return false
	}

	for i, char := range scheme {
		switch {
		case 'a' <= char && char <= 'z', 'A' <= char && char <= 'Z':
		case i > 0 && ('0' <= char && char <= '9' || char == '+' || char == '-' || char == '.'):
		default:
			return false
		}
	}

	return true
}

func ParseDescriptor(uri string) (Descriptor, error) {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok || !validScheme(scheme) {
		return Descriptor{}, fmt.Errorf("%w: descriptor %q has no scheme", ErrInvalidArgument, uri)
	}

	scheme = strings.ToLower(scheme)
	return Descriptor{
		uri:    scheme + uri[len(scheme):],
		scheme: scheme,
	}, nil
}

func MustParseDescriptor(uri string) Descriptor {
	descriptor, err := ParseDescriptor(uri)
	if err != nil {
		panic(err)
	}
	return descriptor
}

// FileDescriptor builds a "file" descriptor for a slash or OS separated path.
func FileDescriptor(filePath string) Descriptor {
	return MustParseDescriptor("file:" + strings.ReplaceAll(filePath, "\\", "/"))
}

func (d Descriptor) String() string {
	return d.uri
}

func (d Descriptor) IsZero() bool {
	return d.uri == ""
}

// Scheme is always lower case.
func (d Descriptor) Scheme() string {
	return d.scheme
}

// SchemeSpecificPart is everything between the scheme and the fragment.
func (d Descriptor) SchemeSpecificPart() string {
	_, rest, _ := strings.Cut(d.uri, ":")
	part, _, _ := strings.Cut(rest, "#")
	return part
}

func (d Descriptor) Fragment() string {
	_, fragment, _ := strings.Cut(d.uri, "#")
	return fragment
}

// Path strips any "//authority" prefix and "?query" suffix from the scheme
// specific part.
func (d Descriptor) Path() string {
	part := d.SchemeSpecificPart()
	part, _, _ = strings.Cut(part, "?")

	if strings.HasPrefix(part, "//") {
		authority := part[2:]
		slash := strings.Index(authority, "/")
		if slash == -1 {
			return ""
		}
		return authority[slash:]
	}

	return part
}

// Ext is the lower cased extension of Path, including the dot.
func (d Descriptor) Ext() string {
	return strings.ToLower(path.Ext(d.Path()))
}

// HasExt reports whether the descriptor's extension is one of exts,
// compared case insensitively.
func (d Descriptor) HasExt(exts ...string) bool {
	ext := d.Ext()
	for _, candidate := range exts {
		if strings.EqualFold(ext, candidate) {
			return true
		}
	}
	return false
}

package assets

import (
	"os"
	"path/filepath"

	"github.com/repeale/fp-go/option"
)

func FileExists(path string) bool {
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return true
	}
	return false
}

// WriteBytes writes data to path, creating parent directories as needed.
func WriteBytes(data []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}

	_, err = out.Write(data)
	if err != nil {
		out.Close()
		return err
	}

	return out.Close()
}

func Find[T any](handler func(x T) bool) func(list []T) opt.Option[T] {
	return func(list []T) opt.Option[T] {
		for _, item := range list {
			if handler(item) {
				return opt.Some(item)
			}
		}
		return opt.None[T]()
	}
}

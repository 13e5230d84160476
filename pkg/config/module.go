package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	J "cuelang.org/go/encoding/json"
	"github.com/repeale/fp-go"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaFile string

//go:embed default.yaml
var DEFAULT []byte

func readFile(path string, config *Config) error {
	// Check if this is a valid file
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("does not exist")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	extension := filepath.Ext(path)
	switch extension {
	case ".json":
		// json.Unmarshal cannot decode "1h" into a time.Duration, so
		// json goes through yaml, which accepts it as a superset.
		if !json.Valid(data) {
			return fmt.Errorf("invalid json")
		}
		fallthrough
	case ".yaml", ".yml":
		return decode(data, config)
	}

	return fmt.Errorf(
		"not in a valid format",
	)
}

func decode(data []byte, config *Config) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	err := decoder.Decode(config)
	// empty documents are fine
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Process reads the provided configuration files in order, each one
// overriding the fields it sets, on top of the default configuration.
func Process(configPaths []string) (*Config, error) {
	config := Config{}

	if err := decode(DEFAULT, &config); err != nil {
		return nil, fmt.Errorf(
			"invalid default config file: %v",
			err,
		)
	}

	for _, path := range configPaths {
		err := readFile(path, &config)
		if err != nil {
			return nil, fmt.Errorf(
				"could not process config file %s: %v",
				path,
				err,
			)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks the configuration against the embedded schema.
func (c Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaFile)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("invalid schema: %v", err)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	expr, err := J.Extract("<config>", data)
	if err != nil {
		return err
	}

	value := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.BuildExpr(expr))
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("config validation failed: %v", err)
	}
	return nil
}

// Kinds lists the asset kinds in alphabetical order.
func (d Directories) Kinds() []string {
	kinds := make([]string, 0)
	for kind := range d.All() {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// All returns kind -> directory.
func (d Directories) All() map[string]string {
	return map[string]string{
		"bitmap":       d.Bitmap,
		"background":   d.Background,
		"board":        d.Board,
		"character":    d.Character,
		"enemy":        d.Enemy,
		"font":         d.Font,
		"item":         d.Item,
		"media":        d.Media,
		"misc":         d.Misc,
		"plugin":       d.Plugin,
		"program":      d.Program,
		"specialmove":  d.SpecialMove,
		"statuseffect": d.StatusEffect,
		"tileset":      d.Tileset,
	}
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func (c Config) ProjectDirectory() string {
	return expandHome(c.Project)
}

// Directory returns the directory for an asset kind such as "board", or ""
// if the kind is unknown.
func (c Config) Directory(kind string) string {
	dir, ok := c.Directories.All()[strings.ToLower(kind)]
	if !ok {
		return ""
	}
	return filepath.Join(c.ProjectDirectory(), dir)
}

// Roots lists the directories file assets are searched in: the project
// first, then any extra roots.
func (c Config) Roots() []string {
	extra := fp.Map(expandHome)(c.Assets.Roots)
	return append([]string{c.ProjectDirectory()}, extra...)
}

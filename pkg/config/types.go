package config

import (
	"time"
)

// Directories maps each asset kind to a subdirectory of the project.
type Directories struct {
	Bitmap       string `yaml:"bitmap" json:"bitmap"`
	Background   string `yaml:"background" json:"background"`
	Board        string `yaml:"board" json:"board"`
	Character    string `yaml:"character" json:"character"`
	Enemy        string `yaml:"enemy" json:"enemy"`
	Font         string `yaml:"font" json:"font"`
	Item         string `yaml:"item" json:"item"`
	Media        string `yaml:"media" json:"media"`
	Misc         string `yaml:"misc" json:"misc"`
	Plugin       string `yaml:"plugin" json:"plugin"`
	Program      string `yaml:"program" json:"program"`
	SpecialMove  string `yaml:"specialmove" json:"specialmove"`
	StatusEffect string `yaml:"statuseffect" json:"statuseffect"`
	Tileset      string `yaml:"tileset" json:"tileset"`
}

type RedisSettings struct {
	// Empty disables the redis store.
	Address string `yaml:"address" json:"address"`
	// Zero keeps entries forever.
	TTL time.Duration `yaml:"ttl" json:"ttl"`
}

type AssetSettings struct {
	Roots          []string      `yaml:"roots" json:"roots"`
	CacheDirectory string        `yaml:"cacheDirectory" json:"cacheDirectory"`
	Redis          RedisSettings `yaml:"redis" json:"redis"`
	// Path to a SQLite database, empty disables it.
	Database string `yaml:"database" json:"database"`
}

type LogSettings struct {
	Debug bool `yaml:"debug" json:"debug"`
}

type Config struct {
	Project     string        `yaml:"project" json:"project"`
	Directories Directories   `yaml:"directories" json:"directories"`
	Assets      AssetSettings `yaml:"assets" json:"assets"`
	Log         LogSettings   `yaml:"log" json:"log"`
}

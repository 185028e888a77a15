package workload

import (
	"bytes"
	"flag"
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Allocator names accepted by Config.Allocator.
const (
	AllocatorHeap  = "heap"
	AllocatorArena = "arena"
	AllocatorMmap  = "mmap"
)

// Config describes an editing workload replayed against a vec.Vec[byte].
type Config struct {
	Allocator       string `yaml:"allocator"`
	ArenaChunkSize  int    `yaml:"arena_chunk_size"`
	InitialCapacity int    `yaml:"initial_capacity"`
	Steps           int    `yaml:"steps"`
	Seed            uint64 `yaml:"seed"`
	MaxEditSize     int    `yaml:"max_edit_size"`
	Verify          bool   `yaml:"verify"`
	Mix             OpMix  `yaml:"mix"`
}

// OpMix holds the relative weight of each edit kind.
type OpMix struct {
	Insert    int `yaml:"insert"`
	Delete    int `yaml:"delete"`
	Replace   int `yaml:"replace"`
	Duplicate int `yaml:"duplicate"`
	Retain    int `yaml:"retain"`
	Truncate  int `yaml:"truncate"`
	Shrink    int `yaml:"shrink"`
}

func (m OpMix) total() int {
	return m.Insert + m.Delete + m.Replace + m.Duplicate + m.Retain + m.Truncate + m.Shrink
}

// RegisterFlags registers the workload flags and sets their defaults on c.
func (c *Config) RegisterFlags(f *flag.FlagSet) {
	f.StringVar(&c.Allocator, "workload.allocator", AllocatorHeap, "Allocation strategy backing the buffer: heap, arena or mmap.")
	f.IntVar(&c.ArenaChunkSize, "workload.arena-chunk-size", 1<<20, "Chunk size in bytes when -workload.allocator=arena.")
	f.IntVar(&c.InitialCapacity, "workload.initial-capacity", 0, "Initial buffer capacity in bytes. 0 starts with no allocation.")
	f.IntVar(&c.Steps, "workload.steps", 100000, "Number of edits to replay.")
	f.Uint64Var(&c.Seed, "workload.seed", 1, "Seed for the edit generator.")
	f.IntVar(&c.MaxEditSize, "workload.max-edit-size", 64, "Maximum number of bytes inserted or deleted by one edit.")
	f.BoolVar(&c.Verify, "workload.verify", false, "Check the buffer against a reference slice after every edit.")

	c.Mix = OpMix{Insert: 40, Delete: 25, Replace: 15, Duplicate: 8, Retain: 2, Truncate: 5, Shrink: 5}
}

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	switch c.Allocator {
	case AllocatorHeap, AllocatorArena, AllocatorMmap:
	default:
		return errors.Errorf("unknown allocator %q", c.Allocator)
	}
	if c.Steps < 0 {
		return errors.New("steps must not be negative")
	}
	if c.MaxEditSize <= 0 {
		return errors.New("max_edit_size must be positive")
	}
	if c.InitialCapacity < 0 {
		return errors.New("initial_capacity must not be negative")
	}
	m := c.Mix
	for _, w := range []int{m.Insert, m.Delete, m.Replace, m.Duplicate, m.Retain, m.Truncate, m.Shrink} {
		if w < 0 {
			return errors.New("mix weights must not be negative")
		}
	}
	if m.total() == 0 {
		return errors.New("at least one mix weight must be positive")
	}
	return nil
}

// LoadConfig reads YAML-formatted config from filename into cfg. Fields
// missing from the file keep their current values.
func LoadConfig(filename string, cfg *Config) error {
	buf, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "reading config file")
	}
	return ParseConfig(buf, cfg)
}

// ParseConfig decodes YAML into cfg, rejecting unknown fields.
func ParseConfig(buf []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return errors.Wrap(err, "parsing config file")
	}
	return nil
}

package cfb

import (
	"math"

	"gopkg.in/yaml.v3"
)

// Limits bounds the work done on untrusted input. Zero fields take their
// defaults.
type Limits struct {
	MaxChainLength        int    `yaml:"max_chain_length"`        // blocks in one chain
	MaxProperties         int    `yaml:"max_properties"`          // slots in the property table
	MaxTreeDepth          int    `yaml:"max_tree_depth"`          // directory nesting
	MaxStreamSize         uint64 `yaml:"max_stream_size"`         // one document
	MaxTotalSize          uint64 `yaml:"max_total_size"`          // container bytes / sum of documents
	MaxBundleEntries      int    `yaml:"max_bundle_entries"`      // properties in an imported bundle
	MaxBundleUncompressed uint64 `yaml:"max_bundle_uncompressed"` // bundle bytes after decompression
}

func defaultLimits() Limits {
	return Limits{
		MaxChainLength:        1 << 23,
		MaxProperties:         1 << 20,
		MaxTreeDepth:          256,
		MaxStreamSize:         2 << 30, // 2 GiB
		MaxTotalSize:          4 << 30, // 4 GiB
		MaxBundleEntries:      100_000,
		MaxBundleUncompressed: 4 << 30,
	}
}

// DefaultLimits returns the limits used when none are given.
func DefaultLimits() Limits { return defaultLimits() }

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxChainLength == 0 {
		l.MaxChainLength = d.MaxChainLength
	}
	if l.MaxProperties == 0 {
		l.MaxProperties = d.MaxProperties
	}
	if l.MaxTreeDepth == 0 {
		l.MaxTreeDepth = d.MaxTreeDepth
	}
	if l.MaxStreamSize == 0 {
		l.MaxStreamSize = d.MaxStreamSize
	}
	if l.MaxTotalSize == 0 {
		l.MaxTotalSize = d.MaxTotalSize
	}
	if l.MaxBundleEntries == 0 {
		l.MaxBundleEntries = d.MaxBundleEntries
	}
	if l.MaxBundleUncompressed == 0 {
		l.MaxBundleUncompressed = d.MaxBundleUncompressed
	}
	return l
}

// readCap is the byte count to hand io.LimitReader so that input one byte
// past MaxTotalSize is still seen. Limits at or above MaxInt64 mean no cap.
func (l Limits) readCap() int64 {
	if l.MaxTotalSize >= math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(l.MaxTotalSize) + 1
}

// ParseLimits reads limits from YAML. Keys left out take their defaults.
func ParseLimits(b []byte) (Limits, error) {
	var l Limits
	if err := yaml.Unmarshal(b, &l); err != nil {
		return Limits{}, err
	}
	return l.withDefaults(), nil
}

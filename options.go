package cfb

import "go.uber.org/zap"

type readConfig struct {
	limits Limits
	logger *zap.Logger
}

type ReadOption func(*readConfig)

func WithReadLimits(l Limits) ReadOption {
	return func(c *readConfig) { c.limits = l }
}

// WithReadLogger receives diagnostics about tolerated oddities such as
// unknown property slots. Fatal problems are returned as errors.
func WithReadLogger(l *zap.Logger) ReadOption {
	return func(c *readConfig) { c.logger = l }
}

func newReadConfig(opts []ReadOption) readConfig {
	cfg := readConfig{limits: defaultLimits()}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

type writeConfig struct {
	limits      Limits
	blockSize   BlockSize
	compression Compression
	logger      *zap.Logger
}

type WriteOption func(*writeConfig)

func WithWriteLimits(l Limits) WriteOption {
	return func(c *writeConfig) { c.limits = l }
}

// WithBlockSize selects 512-byte (version 3) or 4096-byte (version 4)
// blocks. New file systems default to 512; opened ones keep their size.
func WithBlockSize(b BlockSize) WriteOption {
	return func(c *writeConfig) { c.blockSize = b }
}

// WithCompression selects the body compression of an exported stream
// bundle. The default is CompZSTD.
func WithCompression(comp Compression) WriteOption {
	return func(c *writeConfig) { c.compression = comp }
}

func WithWriteLogger(l *zap.Logger) WriteOption {
	return func(c *writeConfig) { c.logger = l }
}

func newWriteConfig(def BlockSize, opts []WriteOption) writeConfig {
	cfg := writeConfig{limits: defaultLimits(), blockSize: def, compression: CompZSTD}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.limits = cfg.limits.withDefaults()
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	return cfg
}

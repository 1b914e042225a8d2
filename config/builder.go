package config

// Builder assembles a MulterConfig through chained calls, validating
// only when Build is called.
type Builder struct {
	cfg MulterConfig
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// WithConfig replaces the builder's current configuration outright.
func (b *Builder) WithConfig(cfg MulterConfig) *Builder {
	b.cfg = cfg
	return b
}

// Selector sets the selector.
func (b *Builder) Selector(s Selector) *Builder {
	b.cfg.Selector = s
	return b
}

// UnknownFieldPolicy sets the unknown-field policy.
func (b *Builder) UnknownFieldPolicy(p UnknownFieldPolicy) *Builder {
	b.cfg.UnknownFieldPolicy = p
	return b
}

// Limits sets the limits.
func (b *Builder) Limits(l Limits) *Builder {
	b.cfg.Limits = l
	return b
}

// Config returns the configuration accumulated so far, unvalidated.
func (b *Builder) Config() MulterConfig {
	return b.cfg
}

// Build validates the accumulated configuration and returns it.
func (b *Builder) Build() (MulterConfig, error) {
	if err := b.cfg.Validate(); err != nil {
		return MulterConfig{}, err
	}
	return b.cfg, nil
}

package decoder

type Option interface {
	apply(*sessionConfig)
}

type Options []Option

func (s Options) apply(cfg *sessionConfig) {
	for _, opt := range s {
		opt.apply(cfg)
	}
}

func (s Options) config() sessionConfig {
	cfg := sessionConfig{
		PixelFormatNegotiator: SelectPixelFormat,
	}
	s.apply(&cfg)
	return cfg
}

type sessionConfig struct {
	PixelFormatNegotiator PixelFormatNegotiator
}

// OptionPixelFormatNegotiator replaces SelectPixelFormat as the negotiation function.
type OptionPixelFormatNegotiator PixelFormatNegotiator

func (opt OptionPixelFormatNegotiator) apply(cfg *sessionConfig) {
	if opt == nil {
		return
	}
	cfg.PixelFormatNegotiator = PixelFormatNegotiator(opt)
}

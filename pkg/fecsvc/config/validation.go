package config

import (
	"fmt"

	"github.com/dbehnke/convcode/pkg/fec"
)

// validate checks the loaded configuration for internally-inconsistent or
// out-of-range values before any job is accepted.
func validate(cfg *Config) error {
	if cfg.Job.K < 1 || cfg.Job.K > 16 {
		return fmt.Errorf("job.k must be in [1,16], got %d", cfg.Job.K)
	}
	if len(cfg.Job.Polynomials) < 1 || len(cfg.Job.Polynomials) > 16 {
		return fmt.Errorf("job.polynomials must have between 1 and 16 entries")
	}
	polys, err := ParsePolynomials(cfg.Job.Polynomials)
	if err != nil {
		return fmt.Errorf("job.polynomials: %w", err)
	}
	for _, p := range polys {
		if err := fec.ValidatePolynomial(cfg.Job.K, p); err != nil {
			return fmt.Errorf("job.polynomials: %w", err)
		}
	}
	if cfg.Job.MaxDecodeLenBits <= 0 {
		return fmt.Errorf("job.max_decode_len_bits must be positive")
	}
	if cfg.Job.InterleaveColumns < 0 {
		return fmt.Errorf("job.interleave_columns must be non-negative")
	}

	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	if cfg.Events.Enabled {
		if cfg.Events.Broker == "" {
			return fmt.Errorf("events.broker is required when events is enabled")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
	}

	return nil
}

// ParsePolynomials converts the config's string-encoded polynomials (octal
// accepted via a leading 0, following the CLI's own convention) into the
// uint32 values pkg/fec expects.
func ParsePolynomials(raw []string) ([]uint32, error) {
	out := make([]uint32, len(raw))
	for i, s := range raw {
		v, err := parseUintAutoBase(s)
		if err != nil {
			return nil, fmt.Errorf("invalid polynomial %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}

// Package config defines the construction-time configuration surface of a
// basis: species list, correlation order and degree bounds, radial-channel
// bounds, and the distance-transform choice. Configurations round-trip
// losslessly through yaml.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ace/internal/ace"
	"github.com/san-kum/ace/internal/transforms"
)

const (
	DefaultMaxOrder = 3
	DefaultMaxDeg   = 8.0
	DefaultWeightL  = 1.5
	DefaultNMax     = 6
	DefaultLMax     = 3
	DefaultRCut     = 5.0
	DefaultR0       = 2.5
	DefaultP        = 2.0
)

type Config struct {
	Species   []int     `yaml:"species"`
	MaxOrder  int       `yaml:"max_order"`
	MaxDegree []float64 `yaml:"max_degree"` // one bound per order; a single entry applies to all orders
	WeightL   float64   `yaml:"weight_l"`
	Constant  float64   `yaml:"constant"` // value of the order-0 basis function

	Radial RadialConfig `yaml:"radial"`
}

type RadialConfig struct {
	NMax      int             `yaml:"nmax"`
	LMax      int             `yaml:"lmax"`
	RIn       float64         `yaml:"rin"`
	RCut      float64         `yaml:"rcut"`
	Transform TransformConfig `yaml:"transform"`
}

type TransformConfig struct {
	Kind   string  `yaml:"kind"` // identity | polynomial | morse | agnesi | analytic
	R0     float64 `yaml:"r0,omitempty"`
	P      float64 `yaml:"p,omitempty"`
	Lambda float64 `yaml:"lambda,omitempty"`

	// For kind "analytic": closed-form expressions for the map and its
	// derivative (in the variable r) and the inverse map (in x).
	Expr        string `yaml:"transform,omitempty"`
	DerivExpr   string `yaml:"transform_derivative,omitempty"`
	InverseExpr string `yaml:"inverse_transform,omitempty"`

	// Pairs overrides the transform per (species, species) pair, indexed
	// into the species list.
	Pairs []PairTransform `yaml:"pairs,omitempty"`
}

type PairTransform struct {
	I      int     `yaml:"i"`
	J      int     `yaml:"j"`
	Kind   string  `yaml:"kind"`
	R0     float64 `yaml:"r0,omitempty"`
	P      float64 `yaml:"p,omitempty"`
	Lambda float64 `yaml:"lambda,omitempty"`

	Expr        string `yaml:"transform,omitempty"`
	DerivExpr   string `yaml:"transform_derivative,omitempty"`
	InverseExpr string `yaml:"inverse_transform,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Species:   []int{1},
		MaxOrder:  DefaultMaxOrder,
		MaxDegree: []float64{DefaultMaxDeg},
		WeightL:   DefaultWeightL,
		Constant:  1.0,
		Radial: RadialConfig{
			NMax: DefaultNMax,
			LMax: DefaultLMax,
			RCut: DefaultRCut,
			Transform: TransformConfig{
				Kind: "polynomial",
				R0:   DefaultR0,
				P:    DefaultP,
			},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the full configuration surface once, before any basis
// construction work begins. Invalid combinations fail construction, never
// evaluation.
func (c *Config) Validate() error {
	if len(c.Species) == 0 {
		return &ace.ConfigError{Field: "species", Reason: "empty species list"}
	}
	seen := make(map[int]bool)
	for _, z := range c.Species {
		if seen[z] {
			return &ace.ConfigError{Field: "species", Reason: fmt.Sprintf("duplicate species %d", z)}
		}
		seen[z] = true
	}
	if c.MaxOrder < 0 {
		return &ace.ConfigError{Field: "max_order", Reason: fmt.Sprintf("must be non-negative, got %d", c.MaxOrder)}
	}
	if len(c.MaxDegree) == 0 {
		return &ace.ConfigError{Field: "max_degree", Reason: "no degree bound"}
	}
	if len(c.MaxDegree) != 1 && len(c.MaxDegree) != c.MaxOrder {
		return &ace.ConfigError{Field: "max_degree", Reason: fmt.Sprintf("need 1 or %d bounds, got %d", c.MaxOrder, len(c.MaxDegree))}
	}
	for i, d := range c.MaxDegree {
		if d <= 0 {
			return &ace.ConfigError{Field: "max_degree", Reason: fmt.Sprintf("bound %d must be positive, got %g", i+1, d)}
		}
		if i > 0 && d > c.MaxDegree[i-1] {
			return &ace.ConfigError{Field: "max_degree", Reason: "bounds must be non-increasing with order"}
		}
	}
	if c.WeightL <= 0 {
		return &ace.ConfigError{Field: "weight_l", Reason: fmt.Sprintf("must be positive, got %g", c.WeightL)}
	}
	if c.Constant == 0 {
		return &ace.ConfigError{Field: "constant", Reason: "order-0 value must be nonzero"}
	}
	if c.Radial.NMax < 0 {
		return &ace.ConfigError{Field: "radial.nmax", Reason: fmt.Sprintf("must be non-negative, got %d", c.Radial.NMax)}
	}
	if c.Radial.LMax < 0 {
		return &ace.ConfigError{Field: "radial.lmax", Reason: fmt.Sprintf("must be non-negative, got %d", c.Radial.LMax)}
	}
	if c.Radial.RIn < 0 || c.Radial.RCut <= c.Radial.RIn {
		return &ace.ConfigError{Field: "radial.rcut", Reason: fmt.Sprintf("need 0 <= rin < rcut, got rin=%g rcut=%g", c.Radial.RIn, c.Radial.RCut)}
	}
	tc := c.Radial.Transform
	if _, err := buildOne(tc.Kind, tc.R0, tc.P, tc.Lambda, tc.Expr, tc.DerivExpr, tc.InverseExpr); err != nil {
		return err
	}
	for _, p := range tc.Pairs {
		if p.I < 0 || p.I >= len(c.Species) || p.J < 0 || p.J >= len(c.Species) {
			return &ace.ConfigError{Field: "radial.transform.pairs", Reason: fmt.Sprintf("pair (%d,%d) outside species list of length %d", p.I, p.J, len(c.Species))}
		}
		if _, err := buildOne(p.Kind, p.R0, p.P, p.Lambda, p.Expr, p.DerivExpr, p.InverseExpr); err != nil {
			return err
		}
	}
	return nil
}

// DegreeBounds expands the configured bounds to one entry per order.
func (c *Config) DegreeBounds() []float64 {
	if len(c.MaxDegree) == c.MaxOrder {
		return c.MaxDegree
	}
	out := make([]float64, c.MaxOrder)
	for i := range out {
		out[i] = c.MaxDegree[0]
	}
	return out
}

func buildOne(kind string, r0, p, lambda float64, fn, dfn, inv string) (transforms.Transform, error) {
	switch kind {
	case "identity", "":
		return transforms.Identity{}, nil
	case "polynomial":
		if r0 < 0 || p <= 0 {
			return nil, &ace.ConfigError{Field: "radial.transform", Reason: fmt.Sprintf("polynomial needs r0 >= 0 and p > 0, got r0=%g p=%g", r0, p)}
		}
		return transforms.NewPolynomial(r0, p), nil
	case "morse":
		if r0 <= 0 || lambda <= 0 {
			return nil, &ace.ConfigError{Field: "radial.transform", Reason: fmt.Sprintf("morse needs r0 > 0 and lambda > 0, got r0=%g lambda=%g", r0, lambda)}
		}
		return transforms.NewMorse(r0, lambda), nil
	case "agnesi":
		if r0 <= 0 || p <= 1 {
			return nil, &ace.ConfigError{Field: "radial.transform", Reason: fmt.Sprintf("agnesi needs r0 > 0 and p > 1, got r0=%g p=%g", r0, p)}
		}
		return transforms.NewAgnesi(r0, p), nil
	case "analytic":
		return transforms.NewAnalytic(fn, dfn, inv)
	default:
		return nil, &ace.ConfigError{Field: "radial.transform.kind", Reason: fmt.Sprintf("unknown kind %q", kind)}
	}
}

// BuildTransform constructs the configured transform, plus the species-pair
// table when pair overrides are present.
func (c *Config) BuildTransform() (transforms.Transform, *transforms.Multi, error) {
	tc := c.Radial.Transform
	base, err := buildOne(tc.Kind, tc.R0, tc.P, tc.Lambda, tc.Expr, tc.DerivExpr, tc.InverseExpr)
	if err != nil {
		return nil, nil, err
	}
	if len(tc.Pairs) == 0 {
		return base, nil, nil
	}

	multi, err := transforms.NewMulti(len(c.Species), base)
	if err != nil {
		return nil, nil, err
	}
	for _, p := range tc.Pairs {
		tr, err := buildOne(p.Kind, p.R0, p.P, p.Lambda, p.Expr, p.DerivExpr, p.InverseExpr)
		if err != nil {
			return nil, nil, err
		}
		if err := multi.Set(p.I, p.J, tr); err != nil {
			return nil, nil, err
		}
	}
	return base, multi, nil
}

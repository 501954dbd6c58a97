package boardlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-boardlist/layering"
	"github.com/goliatone/go-boardlist/pkg/rules"
	"github.com/tailscale/hujson"
)

// Config is the serializable form of the list options. Zero fields are unset
// and fall back to weaker layers or the built-in defaults.
type Config struct {
	Debounce             Duration    `json:"debounce,omitempty"`
	IndicatorMinDuration Duration    `json:"indicator_min_duration,omitempty"`
	IndicatorTarget      string      `json:"indicator_target,omitempty"`
	Projection           *Projection `json:"projection,omitempty"`
	RenameRule           string      `json:"rename_rule,omitempty"`
	RuleEngine           string      `json:"rule_engine,omitempty"`
	RollbackOnFailure    *bool       `json:"rollback_on_failure,omitempty"`
	ActivityChannel      string      `json:"activity_channel,omitempty"`
}

// Duration is a time.Duration encoded as a Go duration string. Bare JSON
// numbers are read as milliseconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch value := raw.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			return fmt.Errorf("boardlist: invalid duration %q: %w", value, err)
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(time.Duration(value * float64(time.Millisecond)))
	case nil:
		*d = 0
	default:
		return fmt.Errorf("boardlist: invalid duration %s", string(data))
	}
	return nil
}

// DefaultConfig mirrors the defaults applied by New.
func DefaultConfig() Config {
	projection := DefaultProjection()
	rollback := false
	return Config{
		Debounce:             Duration(DefaultDebounce),
		IndicatorMinDuration: Duration(DefaultIndicatorMinDuration),
		IndicatorTarget:      DefaultIndicatorTarget,
		Projection:           &projection,
		RuleEngine:           rules.EngineExpr,
		RollbackOnFailure:    &rollback,
	}
}

// ConfigLayer is one configuration snapshot with its source and priority.
type ConfigLayer struct {
	Source   layering.Source
	Snapshot Config
}

// NewConfigLayer wraps cfg as a layer. Higher priorities win.
func NewConfigLayer(source string, priority int, cfg Config) ConfigLayer {
	return ConfigLayer{
		Source:   layering.Source{Name: source, Priority: priority},
		Snapshot: cfg,
	}
}

// ResolveConfig merges layers over DefaultConfig, strongest priority first.
// Source names must be unique and priorities strictly ordered.
func ResolveConfig(layers ...ConfigLayer) (Config, error) {
	sources := make([]layering.Source, 0, len(layers))
	bySource := make(map[string]Config, len(layers))
	for _, layer := range layers {
		sources = append(sources, layer.Source)
		bySource[strings.TrimSpace(layer.Source.Name)] = layer.Snapshot
	}
	chain, err := layering.NewChain(sources...)
	if err != nil {
		return Config{}, err
	}

	ordered := chain.Ordered()
	snapshots := make([]Config, 0, len(ordered)+1)
	for _, source := range ordered {
		snapshots = append(snapshots, bySource[source.Name])
	}
	snapshots = append(snapshots, DefaultConfig())

	merged := layering.Merge(snapshots...)
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}

// Validate reports misconfigured fields.
func (c Config) Validate() error {
	var errs []error
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce must not be negative, got %s", c.Debounce.Std()))
	}
	if c.IndicatorMinDuration < 0 {
		errs = append(errs, fmt.Errorf("indicator_min_duration must not be negative, got %s", c.IndicatorMinDuration.Std()))
	}
	if c.Projection != nil {
		if err := c.Projection.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.RuleEngine)) {
	case "", rules.EngineExpr, rules.EngineCEL, rules.EngineJS:
	default:
		errs = append(errs, fmt.Errorf("%w: %q", rules.ErrUnknownEngine, c.RuleEngine))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("boardlist: invalid config: %w", errors.Join(errs...))
}

// Options converts c into list options. Unset fields produce no option.
func (c Config) Options() ([]Option, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	var opts []Option
	if c.Debounce > 0 {
		opts = append(opts, WithDebounce(c.Debounce.Std()))
	}
	if c.IndicatorMinDuration > 0 {
		opts = append(opts, WithIndicatorMinDuration(c.IndicatorMinDuration.Std()))
	}
	if c.IndicatorTarget != "" {
		opts = append(opts, WithIndicatorTarget(c.IndicatorTarget))
	}
	if c.Projection != nil {
		opts = append(opts, WithProjection(*c.Projection))
	}
	if strings.TrimSpace(c.RenameRule) != "" {
		evaluator, err := rules.New(c.RuleEngine, rules.WithProgramCache(rules.NewMemoryCache()))
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithRenameRule(c.RenameRule), WithRuleEvaluator(evaluator))
	}
	if c.RollbackOnFailure != nil {
		opts = append(opts, WithRollbackOnFailure(*c.RollbackOnFailure))
	}
	if c.ActivityChannel != "" {
		opts = append(opts, WithActivityChannel(c.ActivityChannel))
	}
	return opts, nil
}

// ParseConfig decodes a JSON config. Comments and trailing commas are allowed.
func ParseConfig(data []byte) (Config, error) {
	standard, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("boardlist: parse config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return Config{}, fmt.Errorf("boardlist: decode config: %w", err)
	}
	return cfg, nil
}

// LoadConfigFile reads and parses the config file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("boardlist: read config: %w", err)
	}
	return ParseConfig(data)
}

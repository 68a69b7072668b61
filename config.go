package scene

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// TransactionPolicy selects how mutations outside an update are treated.
type TransactionPolicy string

const (
	// TransactionStrict rejects mutation outside an update with
	// ErrTransactionState.
	TransactionStrict TransactionPolicy = "strict"
	// TransactionImplicit wraps each stray mutation in its own update, so it
	// commits immediately.
	TransactionImplicit TransactionPolicy = "implicit"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *TransactionPolicy) UnmarshalText(text []byte) error {
	switch value := TransactionPolicy(strings.ToLower(strings.TrimSpace(string(text)))); value {
	case "":
		*p = TransactionStrict
	case TransactionStrict, TransactionImplicit:
		*p = value
	default:
		return fmt.Errorf("scene: unknown transaction policy %q", string(text))
	}
	return nil
}

// TimestepPolicy selects how TimestepEnd is treated on non-blurrable
// attributes. Out-of-range timesteps are rejected under every policy.
type TimestepPolicy string

const (
	// TimestepStrict rejects TimestepEnd with ErrInvalidTimestep.
	TimestepStrict TimestepPolicy = "strict"
	// TimestepAlias maps any valid timestep to the single slot.
	TimestepAlias TimestepPolicy = "alias"
)

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *TimestepPolicy) UnmarshalText(text []byte) error {
	switch value := TimestepPolicy(strings.ToLower(strings.TrimSpace(string(text)))); value {
	case "":
		*p = TimestepStrict
	case TimestepStrict, TimestepAlias:
		*p = value
	default:
		return fmt.Errorf("scene: unknown timestep policy %q", string(text))
	}
	return nil
}

// Config holds the behaviour switches shared by a context and its objects.
type Config struct {
	TransactionPolicy TransactionPolicy
	TimestepPolicy    TimestepPolicy
	ActivityEnabled   bool
	ActivityChannel   string
}

// DefaultConfig returns the strict configuration with activity enabled on the
// "scene" channel.
func DefaultConfig() Config {
	return Config{
		TransactionPolicy: TransactionStrict,
		TimestepPolicy:    TimestepStrict,
		ActivityEnabled:   true,
		ActivityChannel:   "scene",
	}
}

// sceneEnv holds raw env values for the scene configuration.
type sceneEnv struct {
	TransactionPolicy TransactionPolicy `env:"SCENE_TRANSACTION_POLICY" envDefault:"strict"`
	TimestepPolicy    TimestepPolicy    `env:"SCENE_TIMESTEP_POLICY"    envDefault:"strict"`
	ActivityEnabled   bool              `env:"SCENE_ACTIVITY_ENABLED"   envDefault:"true"`
	ActivityChannel   string            `env:"SCENE_ACTIVITY_CHANNEL"   envDefault:"scene"`
}

// LoadConfig reads the configuration from the process environment.
func LoadConfig() (Config, error) {
	return loadConfig(env.Options{})
}

// LoadConfigFrom reads the configuration from the given variables instead of
// the process environment.
func LoadConfigFrom(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return loadConfig(env.Options{Environment: environ})
}

func loadConfig(opts env.Options) (Config, error) {
	var raw sceneEnv
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return Config{}, fmt.Errorf("scene: parse env: %w", err)
	}
	return Config{
		TransactionPolicy: raw.TransactionPolicy,
		TimestepPolicy:    raw.TimestepPolicy,
		ActivityEnabled:   raw.ActivityEnabled,
		ActivityChannel:   strings.TrimSpace(raw.ActivityChannel),
	}, nil
}

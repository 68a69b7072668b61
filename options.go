package scene

import (
	"slices"

	"github.com/goliatone/go-scene/pkg/activity"
)

// Option configures a Context or a standalone SceneObject.
type Option func(*contextConfig)

type contextConfig struct {
	config        Config
	logger        Logger
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	activityHooks activity.Hooks
	commitHooks   []CommitHook

	emitter *activity.Emitter
}

func applyOptions(opts []Option) *contextConfig {
	cfg := &contextConfig{config: DefaultConfig()}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopLogger{}
	}
	if cfg.evaluator == nil {
		var exprOpts []ExprEvaluatorOption
		if cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
		}
		if cfg.functions != nil {
			exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.functions))
		}
		cfg.evaluator = NewExprEvaluator(exprOpts...)
	}
	cfg.emitter = activity.NewEmitter(cfg.activityHooks, activity.Config{
		Enabled: cfg.config.ActivityEnabled,
		Channel: cfg.config.ActivityChannel,
	})
	return cfg
}

// WithConfig replaces the whole configuration.
func WithConfig(config Config) Option {
	return func(cfg *contextConfig) {
		cfg.config = config
		if cfg.config.TransactionPolicy == "" {
			cfg.config.TransactionPolicy = TransactionStrict
		}
		if cfg.config.TimestepPolicy == "" {
			cfg.config.TimestepPolicy = TimestepStrict
		}
	}
}

// WithTransactionPolicy selects how mutations outside an update are treated.
func WithTransactionPolicy(policy TransactionPolicy) Option {
	return func(cfg *contextConfig) {
		cfg.config.TransactionPolicy = policy
	}
}

// WithTimestepPolicy selects how TimestepEnd on non-blurrable attributes is
// treated.
func WithTimestepPolicy(policy TimestepPolicy) Option {
	return func(cfg *contextConfig) {
		cfg.config.TimestepPolicy = policy
	}
}

// WithLogger attaches a logger. A nil logger disables logging.
func WithLogger(logger Logger) Option {
	return func(cfg *contextConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithActivityHooks adds hooks notified of object lifecycle and commit
// events. Repeated calls accumulate; nil entries are ignored.
func WithActivityHooks(hooks ...activity.Hook) Option {
	return func(cfg *contextConfig) {
		cfg.activityHooks = append(slices.Clone(cfg.activityHooks), hooks...)
	}
}

// WithCommitHook registers a dependent notified after every outermost commit
// that published changes.
func WithCommitHook(hook CommitHook) Option {
	return func(cfg *contextConfig) {
		if hook != nil {
			cfg.commitHooks = append(slices.Clone(cfg.commitHooks), hook)
		}
	}
}

// WithEvaluator configures the expression evaluator used by Evaluate and
// Select. Defaults to the expr evaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *contextConfig) {
		cfg.evaluator = e
	}
}

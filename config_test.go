package scene

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoadConfigFrom(t *testing.T) {
	cases := []struct {
		name    string
		environ map[string]string
		want    Config
		wantErr bool
	}{
		{
			name:    "defaults",
			environ: nil,
			want:    DefaultConfig(),
		},
		{
			name: "overrides",
			environ: map[string]string{
				"SCENE_TRANSACTION_POLICY": "Implicit",
				"SCENE_TIMESTEP_POLICY":    " alias ",
				"SCENE_ACTIVITY_ENABLED":   "false",
				"SCENE_ACTIVITY_CHANNEL":   " render ",
			},
			want: Config{
				TransactionPolicy: TransactionImplicit,
				TimestepPolicy:    TimestepAlias,
				ActivityEnabled:   false,
				ActivityChannel:   "render",
			},
		},
		{
			name:    "unknown transaction policy",
			environ: map[string]string{"SCENE_TRANSACTION_POLICY": "lazy"},
			wantErr: true,
		},
		{
			name:    "unknown timestep policy",
			environ: map[string]string{"SCENE_TIMESTEP_POLICY": "lerp"},
			wantErr: true,
		},
		{
			name:    "malformed bool",
			environ: map[string]string{"SCENE_ACTIVITY_ENABLED": "sometimes"},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LoadConfigFrom(tc.environ)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got config %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadConfigFrom: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %+v, got %+v", tc.want, got)
			}
		})
	}
}

func TestWithConfigFillsPolicies(t *testing.T) {
	ctx := NewContext(WithConfig(Config{ActivityChannel: "x"}))
	got := ctx.Config()
	if got.TransactionPolicy != TransactionStrict || got.TimestepPolicy != TimestepStrict {
		t.Fatalf("expected empty policies to default to strict, got %+v", got)
	}
	if got.ActivityChannel != "x" {
		t.Fatalf("expected the rest of the config to be kept, got %+v", got)
	}
}

func TestLoadedConfigDrivesObjects(t *testing.T) {
	config, err := LoadConfigFrom(map[string]string{"SCENE_TRANSACTION_POLICY": "implicit"})
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	fx := newSphereFixture(t, WithConfig(config))
	if err := Set(fx.sphere, fx.radius, 3); err != nil {
		t.Fatalf("expected implicit policy from env, got %v", err)
	}
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	fx := newSphereFixture(t, WithLogger(SlogLogger(logger)))

	mustUpdate(t, fx.sphere, func() error { return Set(fx.sphere, fx.radius, 2) })
	if _, err := fx.sphere.Evaluate("radius +"); err == nil {
		t.Fatalf("expected evaluation to fail")
	}

	out := buf.String()
	for _, want := range []string{
		"msg=\"scene commit\"",
		"object=sphere",
		"class=Sphere",
		"changed=[radius]",
		"level=ERROR",
		"engine=expr",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected log output to contain %q, got:\n%s", want, out)
		}
	}

	if SlogLogger(nil) == nil {
		t.Fatalf("expected nil slog logger to map to a no-op logger")
	}
}

func TestLoggerFuncReceivesCommitAndSceneEvents(t *testing.T) {
	var events []LogEvent
	fx := newSphereFixture(t, WithLogger(LoggerFunc(func(event LogEvent) {
		events = append(events, event)
	})))

	mustUpdate(t, fx.sphere, func() error { return fx.sphere.SetBinding("radius", fx.driver) })
	if err := fx.ctx.CommitAllChanges(); err != nil {
		t.Fatalf("CommitAllChanges: %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("expected commit and scene commit events, got %+v", events)
	}
	if events[0].Kind != LogCommit || events[0].Object != "sphere" || len(events[0].Bindings) != 1 {
		t.Fatalf("unexpected commit event %+v", events[0])
	}
	if events[1].Kind != LogSceneCommit || len(events[1].Changed) != 1 {
		t.Fatalf("unexpected scene commit event %+v", events[1])
	}

	var nilFunc LoggerFunc
	nilFunc.Log(LogEvent{})
}

func TestErrorSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrUnknownAttribute, ErrDuplicateAttribute, ErrTypeMismatch, ErrInvalidTimestep,
		ErrNotBindable, ErrTransactionState, ErrUnsupportedTypeDispatch, ErrInvalidAttribute,
		ErrClassFrozen, ErrClassMismatch, ErrUnknownSceneClass, ErrDuplicateSceneClass,
		ErrUnknownSceneObject, ErrDuplicateSceneObject,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && errors.Is(a, b) {
				t.Fatalf("expected %v and %v to be distinct", a, b)
			}
		}
	}
}

package hydrate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_overrides.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder[definition](buildOptions(tc)...)

			result, err := decoder.Decode(Context{Source: tc.Source, Key: tc.Key}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.Expect, result) {
				t.Fatalf("decoded definition mismatch:\nwant: %#v\n got: %#v", tc.Expect, result)
			}
		})
	}
}

func TestDecoderRejectsNilPayload(t *testing.T) {
	_, err := NewDecoder[definition]().Decode(Context{Source: "cfg", Key: "x"}, nil)
	if err == nil || !strings.Contains(err.Error(), `"cfg/x"`) {
		t.Fatalf("expected nil payload error naming the context, got %v", err)
	}
}

func TestDecoderDoesNotMutateInput(t *testing.T) {
	input := map[string]any{"variant": "plain", "value": "x"}
	hook := func(_ Context, payload map[string]any) (map[string]any, error) {
		payload["variant"] = "merged"
		return payload, nil
	}
	out, err := NewDecoder[definition](WithPreHook[definition](hook)).Decode(Context{Key: "k"}, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Variant != "merged" || input["variant"] != "plain" {
		t.Fatalf("expected hook to see a copy, got out=%q input=%v", out.Variant, input["variant"])
	}
}

func TestDecoderAcceptsEveryStoreCodec(t *testing.T) {
	type stored struct {
		Next     time.Time     `json:"next"`
		Interval int64         `json:"interval"`
		Grace    time.Duration `json:"grace"`
		Label    string        `json:"label"`
	}
	want := stored{
		Next:     time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
		Interval: 604800,
		Grace:    90 * time.Second,
		Label:    "weekly",
	}
	payloads := map[string]map[string]any{
		"json":    {"next": "2024-01-01T03:00:00Z", "interval": float64(604800), "grace": "1m30s", "label": "weekly"},
		"msgpack": {"next": "2024-01-01T03:00:00Z", "interval": int64(604800), "grace": "90s", "label": []byte("weekly")},
		"yaml":    {"next": "2024-01-01T03:00:00Z", "interval": 604800, "grace": "1m30s", "label": "weekly"},
	}
	decoder := NewDecoder[stored]()
	for codec, payload := range payloads {
		got, err := decoder.Decode(Context{Source: codec, Key: "overlay_db_cleanup"}, payload)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", codec, err)
		}
		if !got.Next.Equal(want.Next) || got.Interval != want.Interval || got.Grace != want.Grace || got.Label != want.Label {
			t.Fatalf("%s: expected %+v, got %+v", codec, want, got)
		}
	}
}

func TestDecoderConversionAndPostHookErrors(t *testing.T) {
	type flagged struct {
		Enabled bool `json:"enabled"`
	}
	yes := func(from, to reflect.Type, data any) (any, error) {
		if from.Kind() == reflect.String && to.Kind() == reflect.Bool && data == "yes" {
			return true, nil
		}
		return data, nil
	}
	out, err := NewDecoder[flagged](WithConversion[flagged](yes)).Decode(Context{Key: "f"}, map[string]any{"enabled": "yes"})
	if err != nil || !out.Enabled {
		t.Fatalf("expected conversion to apply, got %+v err=%v", out, err)
	}

	boom := errors.New("boom")
	failing := WithPostHook[flagged](func(Context, *flagged) error { return boom })
	if _, err := NewDecoder[flagged](failing).Decode(Context{Key: "f"}, map[string]any{}); !errors.Is(err, boom) {
		t.Fatalf("expected post-hook error, got %v", err)
	}
}

func buildOptions(tc fixtureCase) []DecoderOption[definition] {
	options := []DecoderOption[definition]{}

	for _, optName := range tc.Options {
		switch optName {
		case "strict":
			options = append(options, WithStrict[definition]())
		}
	}
	for _, hookName := range tc.PreHooks {
		switch hookName {
		case "split_key":
			options = append(options, WithPreHook[definition](splitKeyPreHook))
		}
	}
	for _, hookName := range tc.PostHooks {
		switch hookName {
		case "default_origin":
			options = append(options, WithPostHook[definition](defaultOriginPostHook))
		}
	}
	return options
}

func splitKeyPreHook(ctx Context, payload map[string]any) (map[string]any, error) {
	parts := strings.Split(ctx.Key, ":")
	switch len(parts) {
	case 1:
		return payload, nil
	case 2:
		payload["type"] = parts[0]
		payload["name"] = parts[1]
		return payload, nil
	default:
		return nil, fmt.Errorf("invalid key %q", ctx.Key)
	}
}

func defaultOriginPostHook(ctx Context, def *definition) error {
	if def == nil {
		return errors.New("definition is nil")
	}
	if def.Origin == "" {
		def.Origin = ctx.Source
	}
	return nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name      string         `json:"name"`
	Source    string         `json:"source"`
	Key       string         `json:"key"`
	Input     map[string]any `json:"input"`
	Expect    definition     `json:"expect"`
	ExpectErr string         `json:"expectErr"`
	PreHooks  []string       `json:"preHooks"`
	PostHooks []string       `json:"postHooks"`
	Options   []string       `json:"options"`
}

type definition struct {
	Name     string `json:"name,omitempty"`
	Variant  string `json:"variant"`
	Value    any    `json:"value"`
	Origin   string `json:"origin"`
	Type     string `json:"type"`
	Strategy string `json:"strategy"`
	Priority int    `json:"priority"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	path := filepath.Join("testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}

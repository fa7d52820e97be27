package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-options-overlay/internal/metrics"
	"github.com/goliatone/go-options-overlay/pkg/hooks"
	"github.com/goliatone/go-options-overlay/pkg/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPlatformReadPipelineSources(t *testing.T) {
	p, mem := newTestPlatform(t)
	ctx := context.Background()

	trace, err := p.GetWithTrace(ctx, TypeOption, "missing")
	if err != nil || trace.Source != SourceNone || trace.Found {
		t.Fatalf("expected none, got %+v err=%v", trace, err)
	}

	seed(t, mem, store.OptionRef(1, "blogname"), "stored")
	trace, _ = p.GetWithTrace(ctx, TypeOption, "blogname")
	if trace.Source != SourceStore || trace.Value != "stored" {
		t.Fatalf("expected store, got %+v", trace)
	}

	p.Interceptors().Add(hooks.OptionKey("tagline"), hooks.PhaseDefault, 0, "d", func(context.Context, hooks.Request) (any, bool, error) {
		return "fallback", true, nil
	})
	trace, _ = p.GetWithTrace(ctx, TypeOption, "tagline")
	if trace.Source != SourceDefault || trace.Value != "fallback" {
		t.Fatalf("expected default, got %+v", trace)
	}

	p.Interceptors().Add(hooks.OptionKey("blogname"), hooks.PhasePre, 0, "o", func(context.Context, hooks.Request) (any, bool, error) {
		return "override", true, nil
	})
	trace, _ = p.GetWithTrace(ctx, TypeOption, "blogname")
	if trace.Source != SourceOverride || trace.Value != "override" {
		t.Fatalf("expected override, got %+v", trace)
	}
}

func TestSuppressedReadSkipsOnlyThatKey(t *testing.T) {
	p, mem := newTestPlatform(t)
	seed(t, mem, store.OptionRef(1, "a"), "stored-a")
	seed(t, mem, store.OptionRef(1, "b"), "stored-b")
	for _, name := range []string{"a", "b"} {
		name := name
		p.Interceptors().Add(hooks.OptionKey(name), hooks.PhasePre, 0, name, func(context.Context, hooks.Request) (any, bool, error) {
			return "override-" + name, true, nil
		})
	}

	ctx := hooks.Suppress(context.Background(), hooks.OptionKey("a"))
	a, _, _ := p.Get(ctx, TypeOption, "a")
	b, _, _ := p.Get(ctx, TypeOption, "b")
	if a != "stored-a" {
		t.Fatalf("expected suppressed key to read storage, got %v", a)
	}
	if b != "override-b" {
		t.Fatalf("expected other key still intercepted, got %v", b)
	}
}

func TestStoredBypassesInterceptors(t *testing.T) {
	p, mem := newTestPlatform(t)
	seed(t, mem, store.OptionRef(1, "a"), "stored-a")
	p.Interceptors().Add(hooks.OptionKey("a"), hooks.PhasePre, 0, "o", func(context.Context, hooks.Request) (any, bool, error) {
		return "override", true, nil
	})
	p.Interceptors().Add(hooks.OptionKey("b"), hooks.PhaseDefault, 0, "d", func(context.Context, hooks.Request) (any, bool, error) {
		return "fallback", true, nil
	})

	value, found, err := p.Stored(context.Background(), TypeOption, "a")
	if err != nil || !found || value != "stored-a" {
		t.Fatalf("expected stored value, got %v found=%v err=%v", value, found, err)
	}
	if _, found, _ := p.Stored(context.Background(), TypeOption, "b"); found {
		t.Fatalf("expected default handler ignored")
	}
}

func TestPlatformInterceptorErrorsPropagate(t *testing.T) {
	p, _ := newTestPlatform(t)
	boom := errors.New("boom")
	p.Interceptors().Add(hooks.OptionKey("a"), hooks.PhasePre, 0, "x", func(context.Context, hooks.Request) (any, bool, error) {
		return nil, false, boom
	})
	if _, _, err := p.Get(context.Background(), TypeOption, "a"); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPlatformForTenantSharesRegistries(t *testing.T) {
	p, mem := newTestPlatform(t, WithTenant(2))
	seed(t, mem, store.OptionRef(7, "blogname"), "seven")

	other := p.ForTenant(7)
	if other.Tenant() != 7 || p.Tenant() != 2 {
		t.Fatalf("expected tenant copy, got %d/%d", other.Tenant(), p.Tenant())
	}
	if other.Interceptors() != p.Interceptors() || other.Filters() != p.Filters() {
		t.Fatalf("expected shared registries")
	}
	value, found, err := p.GetForTenant(context.Background(), 7, "blogname")
	if err != nil || !found || value != "seven" {
		t.Fatalf("expected cross-tenant read, got %v found=%v err=%v", value, found, err)
	}
}

func TestPlatformSiteOptionsIgnoreTenant(t *testing.T) {
	p, _ := newTestPlatform(t, WithTenant(4))
	ctx := context.Background()
	if ok, err := p.Add(ctx, TypeSiteOption, "site_admins", []any{"root"}, true); err != nil || !ok {
		t.Fatalf("expected add, got %v %v", ok, err)
	}
	value, found, _ := p.ForTenant(9).Get(ctx, TypeSiteOption, "site_admins")
	if !found || value == nil {
		t.Fatalf("expected network value visible from every tenant")
	}
	if ok, _ := p.Delete(ctx, TypeSiteOption, "site_admins"); !ok {
		t.Fatalf("expected delete")
	}
}

func TestPlatformRejectsInvalidReads(t *testing.T) {
	p, _ := newTestPlatform(t)
	if _, _, err := p.Get(context.Background(), TypeOption, ""); !errors.Is(err, store.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, _, err := p.Get(context.Background(), Type("transient"), "a"); !errors.Is(err, store.ErrInvalidNamespace) {
		t.Fatalf("expected ErrInvalidNamespace, got %v", err)
	}
}

func TestPlatformRecordsReadMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector("overlay", reg)
	p, mem := newTestPlatform(t, WithMetrics(collector))
	seed(t, mem, store.OptionRef(1, "blogname"), "stored")

	_, _, _ = p.Get(context.Background(), TypeOption, "blogname")
	_, _, _ = p.Get(context.Background(), TypeOption, "missing")

	count, err := testutil.GatherAndCount(reg, "overlay_option_reads_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected two label sets, got %d", count)
	}
}

func TestTraceJSONRoundTrip(t *testing.T) {
	trace := Trace{Type: TypeOption, Name: "blogname", Tenant: 1, Source: SourceStore, Value: "x", Found: true}
	payload, err := trace.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := TraceFromJSON(payload)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != trace {
		t.Fatalf("expected %+v, got %+v", trace, decoded)
	}
}

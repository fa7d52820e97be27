package overlay

import (
	"context"
	"fmt"

	"github.com/goliatone/go-options-overlay/pkg/hooks"
)

// DefaultRemoteTenant is the tenant synced options read from unless a
// filter says otherwise.
const DefaultRemoteTenant int64 = 1

// FilterRemoteTenant is applied to every synced option's remote tenant.
const FilterRemoteTenant = "overlay/synced/remote_tenant"

// RemoteTenantFilter returns the per-option remote tenant filter name.
func RemoteTenantFilter(name string) string {
	return "overlay/synced/" + name + "/remote_tenant"
}

// SyncedOption substitutes the value stored on another tenant.
type SyncedOption struct {
	record
	remoteTenant int64
}

// RemoteTenant returns the tenant the value is read from. Zero means
// unresolved.
func (o *SyncedOption) RemoteTenant() int64 { return o.remoteTenant }

// SetValue stores value and resolves the remote tenant. It fails when no
// remote tenant could be resolved.
func (o *SyncedOption) SetValue(value any) error {
	if err := o.record.SetValue(value); err != nil {
		return err
	}
	o.resolveRemoteTenant(context.Background())
	if o.remoteTenant == 0 {
		return fmt.Errorf("%w: %s", ErrRemoteTenant, o.name)
	}
	return nil
}

func (o *SyncedOption) attach(p *Platform) {
	o.record.attach(p)
	if o.value != nil {
		o.resolveRemoteTenant(context.Background())
	}
}

// resolveRemoteTenant runs the per-option filter then the global filter.
// A zero result keeps the previous tenant.
func (o *SyncedOption) resolveRemoteTenant(ctx context.Context) {
	var filters *hooks.Filters
	if o.platform != nil {
		filters = o.platform.Filters()
	}
	tenant := DefaultRemoteTenant
	tenant = filters.ApplyInt64(ctx, RemoteTenantFilter(o.name), tenant, o)
	tenant = filters.ApplyInt64(ctx, FilterRemoteTenant, tenant, o)
	if tenant != 0 {
		o.remoteTenant = tenant
	}
}

// Resolve reads the option from the remote tenant with this option's own
// interception suppressed.
func (o *SyncedOption) Resolve(ctx context.Context) (any, bool, error) {
	if o.remoteTenant == 0 || o.platform == nil {
		return nil, false, nil
	}
	ctx = hooks.Suppress(ctx, o.Key())
	return o.platform.ForTenant(o.remoteTenant).Get(ctx, o.typ, o.name)
}

// ShouldLoad skips the remote tenant itself.
func (o *SyncedOption) ShouldLoad() bool {
	return o.record.ShouldLoad() && o.platform.Tenant() != o.remoteTenant
}

package overlay

import (
	"errors"

	"github.com/goliatone/go-options-overlay/pkg/store"
)

// Type selects the namespace an option lives in.
type Type = store.Namespace

const (
	// TypeOption targets per-tenant options.
	TypeOption = store.NamespaceOption
	// TypeSiteOption targets network-wide options.
	TypeSiteOption = store.NamespaceSiteOption
)

// OriginPlatform marks options owned by the platform itself. They load
// before options contributed by extensions.
const OriginPlatform = "platform"

// DBStrategy tells the cleanup job what to do with the persisted row of a
// managed option.
type DBStrategy string

const (
	// StrategyUnAutoload rewrites the row with autoload disabled.
	StrategyUnAutoload DBStrategy = "un_autoload"
	// StrategyAutoload leaves the row alone.
	StrategyAutoload DBStrategy = "autoload"
	// StrategyDelete removes the row.
	StrategyDelete DBStrategy = "delete"
)

// Valid reports whether s is a known strategy.
func (s DBStrategy) Valid() bool {
	switch s {
	case StrategyUnAutoload, StrategyAutoload, StrategyDelete:
		return true
	default:
		return false
	}
}

var (
	// ErrNameRequired indicates an empty option name.
	ErrNameRequired = errors.New("overlay: name is required")
	// ErrValueRequired indicates a nil option value.
	ErrValueRequired = errors.New("overlay: value is required")
	// ErrOriginRequired indicates an empty origin.
	ErrOriginRequired = errors.New("overlay: origin is required")
	// ErrInvalidType indicates an unknown option type.
	ErrInvalidType = errors.New("overlay: invalid option type")
	// ErrInvalidStrategy indicates an unknown db strategy.
	ErrInvalidStrategy = errors.New("overlay: invalid db strategy")
	// ErrStrategyUnsupported indicates a db strategy set on a site option.
	ErrStrategyUnsupported = errors.New("overlay: db strategy only applies to options")
	// ErrRemoteTenant indicates a synced option whose remote tenant resolved
	// to zero.
	ErrRemoteTenant = errors.New("overlay: remote tenant unresolved")
	// ErrPlatformRequired indicates a manager whose collection has no
	// platform.
	ErrPlatformRequired = errors.New("overlay: platform is required")
	// ErrInvalidVariant indicates an unknown option variant.
	ErrInvalidVariant = errors.New("overlay: invalid option variant")
)

// filterArguments mirrors the argument count of the host read hooks.
func filterArguments(t Type) int {
	if t == TypeSiteOption {
		return 4
	}
	return 3
}

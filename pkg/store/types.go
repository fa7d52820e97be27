package store

import (
	"context"
	"errors"
	"fmt"
)

// ErrNameRequired indicates a Ref without an option name.
var ErrNameRequired = errors.New("store: name is required")

// ErrInvalidNamespace indicates a Ref pointing at an unknown namespace.
var ErrInvalidNamespace = errors.New("store: invalid namespace")

// Namespace selects one of the two parallel option namespaces.
type Namespace string

const (
	// NamespaceOption holds per-tenant entries.
	NamespaceOption Namespace = "option"
	// NamespaceSiteOption holds network-wide entries.
	NamespaceSiteOption Namespace = "site_option"
)

// Valid reports whether n is a known namespace.
func (n Namespace) Valid() bool {
	return n == NamespaceOption || n == NamespaceSiteOption
}

func (n Namespace) String() string {
	return string(n)
}

// ParseNamespace converts a string into a Namespace, returning
// ErrInvalidNamespace for unknown values.
func ParseNamespace(value string) (Namespace, error) {
	ns := Namespace(value)
	if !ns.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidNamespace, value)
	}
	return ns, nil
}

// Ref identifies one persisted entry.
type Ref struct {
	Namespace Namespace
	Tenant    int64
	Name      string
}

// OptionRef builds a Ref for a tenant entry.
func OptionRef(tenant int64, name string) Ref {
	return Ref{Namespace: NamespaceOption, Tenant: tenant, Name: name}
}

// SiteOptionRef builds a Ref for a network entry.
func SiteOptionRef(name string) Ref {
	return Ref{Namespace: NamespaceSiteOption, Name: name}
}

// Normalize drops the tenant for network entries so equal entries compare
// equal.
func (r Ref) Normalize() Ref {
	if r.Namespace == NamespaceSiteOption {
		r.Tenant = 0
	}
	return r
}

// Validate checks the Ref has a known namespace and a name.
func (r Ref) Validate() error {
	if !r.Namespace.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidNamespace, r.Namespace)
	}
	if r.Name == "" {
		return ErrNameRequired
	}
	return nil
}

// Identifier returns the canonical storage key for r.
func (r Ref) Identifier() (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	switch r.Namespace {
	case NamespaceSiteOption:
		return fmt.Sprintf("site_option/%s", r.Name), nil
	default:
		return fmt.Sprintf("option/%d/%s", r.Tenant, r.Name), nil
	}
}

// Record is one persisted entry.
type Record struct {
	Name     string `json:"name" yaml:"name"`
	Value    any    `json:"value" yaml:"value"`
	Autoload bool   `json:"autoload" yaml:"autoload"`
}

// Store is the host persistence layer.
type Store interface {
	// Get returns the record for ref; ok is false when nothing is stored.
	Get(ctx context.Context, ref Ref) (record Record, ok bool, err error)
	// Add stores value unless an entry already exists, in which case it
	// returns false and leaves the entry untouched.
	Add(ctx context.Context, ref Ref, value any, autoload bool) (bool, error)
	// Delete removes the entry, returning false when nothing was stored.
	Delete(ctx context.Context, ref Ref) (bool, error)
	// List returns every record of one namespace, ordered by name. The
	// tenant is ignored for the network namespace.
	List(ctx context.Context, ns Namespace, tenant int64) ([]Record, error)
}

// Package store defines the persistence contract the overlay rides on: a
// key-value store with a per-tenant namespace ("option") and a network-wide
// namespace ("site_option"), each entry carrying an autoload flag.
//
// Responsibilities:
//   - Store only gets, adds and deletes single records for a single Ref.
//   - Add never overwrites. Rewriting an entry (for example to drop its
//     autoload flag) is a Delete followed by an Add.
//   - Interception and overriding live in the root overlay package; nothing
//     in this package knows about overrides.
//
// Deterministic keys:
//
//	Ref.Identifier() yields `option/<tenant>/<name>` for tenant entries and
//	`site_option/<name>` for network entries. Adapters (sqlstore, redisstore)
//	use it, or its parts, as their storage key.
package store

// Package overlay intercepts reads of named configuration values
// ("options") and substitutes platform controlled values.
//
// An Option is one of three variants: PlainOption serves a fixed value,
// SyncedOption serves the value stored on a remote tenant, and MergedOption
// merges its value over the persisted one. Options live in a Collection
// bound to a Platform, which answers reads through its interceptor
// registry, its store, and finally its default handlers.
//
// A Manager loads the collection in a stable order and periodically tidies
// persisted rows according to each option's DBStrategy.
package overlay

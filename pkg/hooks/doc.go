// Package hooks provides the two extension mechanisms the overlay is built
// on:
//
//   - Interceptors: an explicit registry mapping (namespace, name) and a
//     phase to priority-ordered read handlers. "pre" handlers may answer a
//     read before storage is consulted; "default" handlers answer only when
//     storage holds nothing.
//   - Filters: named, priority-ordered extension points that transform a
//     value (for example the list of option names a cleanup pass touches).
//
// Re-entrant reads are handled with a suppression guard carried in the
// context: a handler that needs the underlying stored value reads through a
// context returned by Suppress, which hides that key's pre handlers for the
// duration of the call. Default handlers still answer when storage is empty.
package hooks

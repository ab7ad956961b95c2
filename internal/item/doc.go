// Package item holds the consumer-facing side of a simulation: the world of
// body items, the published per-body state and recordings, the external
// timeline and a key/value archive for persisting settings.
//
// Everything here is safe for concurrent use. The simulator never touches a
// master body held by a [BodyItem]; it publishes results by value through
// [BodyItem.Publish].
package item

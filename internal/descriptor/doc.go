// Package descriptor builds per-entity schemas from registered Go struct
// types and from foreign-type overlay configurations.
//
// Descriptors reference other entities by qualified name only. Resolution
// to an actual descriptor happens later, against the central registry, so
// the order entities are built in never matters and no partially-built
// descriptor is ever observable.
package descriptor

// Package diagnostic provides the severity-tagged message stream emitted
// while entity schemas are analyzed and conversion plans are built.
//
// Errors drop the offending entity's plan only; warnings never block
// generation. Diagnostics carry the entity qualified name and field so a
// caller can point back at the declaration site.
package diagnostic

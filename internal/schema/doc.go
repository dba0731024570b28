// Package schema classifies declared Go types into the closed category
// set that drives conversion plan building.
//
// Classification is total: anything unrecognized degrades to the OPAQUE
// category, which stores and reads values without interpretation. The
// category alone determines which conversion algorithm applies to a field.
package schema

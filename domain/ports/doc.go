// Package ports defines the interfaces the boundary depends on.
// The boundary drives a sequence model engine and places transfer records
// in a host-visible memory; both are abstractions here so the flat
// operation table never depends on a concrete engine or allocator.
package ports

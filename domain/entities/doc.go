// Package entities provides the core domain types shared by the boundary,
// the sequence model engine and the exporters.
// These are plain values: attributes, items, algorithms, training
// configuration and the structured error record reported to hosts.
package entities

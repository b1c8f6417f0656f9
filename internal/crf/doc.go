// Package crf implements the sequence model engine: a first-order
// linear-chain conditional random field (crf1d) with feature generation,
// several training algorithms, a binary model format and Viterbi tagging.
//
// The engine is driven through the interfaces in domain/ports; nothing in
// this package knows about handles, boundary memory or error state.
package crf

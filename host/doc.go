// Package host runs the crfsuite boundary compiled to WebAssembly.
//
// It abstracts the underlying WASM engine (wazero), manages guest instance
// lifecycle and handles the low-level ABI interactions: it encodes
// arguments into guest memory with the shared record layout, reads back
// FfiStr and array records, and releases owned results through the guest's
// own release exports. Guest log records arrive through the
// crfsuite_host.log_message import and are re-emitted with slog.
package host

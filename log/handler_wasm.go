//go:build wasip1

package log

import (
	"runtime"
	"unsafe"

	"github.com/reglet-dev/crfsuite-go/internal/abi"
)

// hostLogMessage is provided by the host runtime.
//
//go:wasmimport crfsuite_host log_message
//nolint:revive // intentional snake_case to match WASM import convention
func hostLogMessage(messagePacked uint64)

func defaultSink(message []byte) {
	if len(message) == 0 {
		return
	}
	ptr := uint32(uintptr(unsafe.Pointer(&message[0])))
	hostLogMessage(abi.PackPtrLen(ptr, uint32(len(message))))
	runtime.KeepAlive(message)
}

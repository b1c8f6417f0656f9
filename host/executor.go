package host

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/log"
)

// HostModule is the import module name guests link against.
const HostModule = "crfsuite_host"

// Executor owns a wazero runtime with the host module registered.
type Executor struct {
	runtime     wazero.Runtime
	logger      *slog.Logger
	dir         string
	memoryPages uint32
}

// NewExecutor creates a new executor with the given options.
func NewExecutor(ctx context.Context, opts ...Option) (*Executor, error) {
	e := &Executor{logger: log.NewNop()}
	for _, opt := range opts {
		opt(e)
	}

	cfg := wazero.NewRuntimeConfig()
	if e.memoryPages > 0 {
		cfg = cfg.WithMemoryLimitPages(e.memoryPages)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	e.runtime = rt

	if err := e.registerHostFunctions(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return e, nil
}

// Close releases resources held by the executor and every instance.
func (e *Executor) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Load compiles and instantiates a guest module, then initializes the
// library inside it.
func (e *Executor) Load(ctx context.Context, wasmBytes []byte) (*Instance, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile module: %w", err)
	}

	// Anonymous, so one executor can host several instances. Reactor
	// modules have no _start; _initialize is called below.
	modCfg := wazero.NewModuleConfig().WithName("").WithStartFunctions()
	if e.dir != "" {
		modCfg = modCfg.WithFSConfig(wazero.NewFSConfig().WithDirMount(e.dir, "/"))
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}

	if init := mod.ExportedFunction("_initialize"); init != nil {
		if _, err := init.Call(ctx); err != nil {
			mod.Close(ctx)
			return nil, fmt.Errorf("failed to call _initialize: %w", err)
		}
	}

	inst, err := newInstance(mod)
	if err != nil {
		mod.Close(ctx)
		return nil, err
	}
	if _, err := inst.call(ctx, fnInit); err != nil {
		mod.Close(ctx)
		return nil, err
	}
	return inst, nil
}

func (e *Executor) registerHostFunctions(ctx context.Context) error {
	_, err := e.runtime.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().
		WithFunc(func(ctx context.Context, m api.Module, packed uint64) {
			if packed>>abi.PtrHighBits == 0 {
				return
			}
			ptr, length := abi.UnpackPtrLen(packed)
			payload, ok := m.Memory().Read(ptr, length)
			if !ok {
				e.logger.WarnContext(ctx, "guest log message outside guest memory", "ptr", ptr, "len", length)
				return
			}
			emitGuestLog(ctx, e.logger, payload)
		}).
		Export("log_message").
		Instantiate(ctx)
	return err
}

// emitGuestLog re-emits one serialized guest record.
func emitGuestLog(ctx context.Context, logger *slog.Logger, payload []byte) {
	msg, err := log.DecodeMessage(payload)
	if err != nil {
		logger.WarnContext(ctx, "undecodable guest log message", "payload", string(payload), "error", err)
		return
	}
	msg.Emit(ctx, logger.With("source", "guest"))
}

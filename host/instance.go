package host

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
	"github.com/reglet-dev/crfsuite-go/internal/abi"
	"github.com/reglet-dev/crfsuite-go/wireformat"
)

// Handle is a guest Model, Tagger or Trainer handle. Zero is null.
type Handle uint64

// Guest exports.
const (
	fnAllocate            = "allocate"
	fnDeallocate          = "deallocate"
	fnInit                = "crfsuite_init"
	fnErrClear            = "crfsuite_err_clear"
	fnErrLastCode         = "crfsuite_err_get_last_code"
	fnErrLastMessage      = "crfsuite_err_get_last_message"
	fnErrLastDetail       = "crfsuite_err_get_last_detail"
	fnStrFree             = "crfsuite_str_free"
	fnTagsDestroy         = "crfsuite_tags_destroy"
	fnParamsDestroy       = "crfsuite_params_destroy"
	fnModelOpen           = "crfsuite_model_open"
	fnModelFromBytes      = "crfsuite_model_from_bytes"
	fnModelDump           = "crfsuite_model_dump"
	fnModelLabels         = "crfsuite_model_labels"
	fnModelDestroy        = "crfsuite_model_destroy"
	fnTaggerCreate        = "crfsuite_tagger_create"
	fnTaggerTag           = "crfsuite_tagger_tag"
	fnTaggerLabels        = "crfsuite_tagger_labels"
	fnTaggerProbability   = "crfsuite_tagger_probability"
	fnTaggerMarginal      = "crfsuite_tagger_marginal"
	fnTaggerDestroy       = "crfsuite_tagger_destroy"
	fnTrainerCreate       = "crfsuite_trainer_create"
	fnTrainerSelect       = "crfsuite_trainer_select"
	fnTrainerClear        = "crfsuite_trainer_clear"
	fnTrainerAppend       = "crfsuite_trainer_append"
	fnTrainerTrain        = "crfsuite_trainer_train"
	fnTrainerSet          = "crfsuite_trainer_set"
	fnTrainerGet          = "crfsuite_trainer_get"
	fnTrainerHelp         = "crfsuite_trainer_help"
	fnTrainerParams       = "crfsuite_trainer_params"
	fnTrainerNumInstances = "crfsuite_trainer_num_instances"
	fnTrainerAlgorithm    = "crfsuite_trainer_algorithm"
	fnTrainerReport       = "crfsuite_trainer_report"
	fnTrainerDestroy      = "crfsuite_trainer_destroy"
)

var requiredExports = []string{
	fnAllocate, fnDeallocate, fnInit,
	fnErrClear, fnErrLastCode, fnErrLastMessage, fnErrLastDetail,
	fnStrFree, fnTagsDestroy, fnParamsDestroy,
	fnModelOpen, fnModelFromBytes, fnModelDump, fnModelLabels, fnModelDestroy,
	fnTaggerCreate, fnTaggerTag, fnTaggerLabels, fnTaggerProbability, fnTaggerMarginal, fnTaggerDestroy,
	fnTrainerCreate, fnTrainerSelect, fnTrainerClear, fnTrainerAppend, fnTrainerTrain,
	fnTrainerSet, fnTrainerGet, fnTrainerHelp, fnTrainerParams, fnTrainerNumInstances,
	fnTrainerAlgorithm, fnTrainerReport, fnTrainerDestroy,
}

// Instance is one instantiated guest. Failed operations return the guest's
// structured error state as a *wireformat.ErrorDetail. An Instance is not
// safe for concurrent use.
type Instance struct {
	mod    api.Module
	fns    map[string]api.Function
	layout abi.Layout
}

func newInstance(mod api.Module) (*Instance, error) {
	inst := &Instance{mod: mod, fns: make(map[string]api.Function, len(requiredExports)), layout: abi.Layout32}
	for _, name := range requiredExports {
		f := mod.ExportedFunction(name)
		if f == nil {
			return nil, fmt.Errorf("guest does not export %q", name)
		}
		inst.fns[name] = f
	}
	return inst, nil
}

// Close releases the guest instance.
func (i *Instance) Close(ctx context.Context) error {
	return i.mod.Close(ctx)
}

func (i *Instance) mem(ctx context.Context) guestMemory {
	return guestMemory{ctx: ctx, mod: i.mod, alloc: i.fns[fnAllocate], free: i.fns[fnDeallocate]}
}

func (i *Instance) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	results, err := i.fns[name].Call(ctx, params...)
	if err != nil {
		return nil, fmt.Errorf("guest call %s failed: %w", name, err)
	}
	return results, nil
}

func (i *Instance) call1(ctx context.Context, name string, params ...uint64) (uint64, error) {
	results, err := i.call(ctx, name, params...)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, fmt.Errorf("guest call %s returned no result", name)
	}
	return results[0], nil
}

// callStr calls an export that writes an FfiStr through a trailing
// out-pointer, then releases the string through the guest.
func (i *Instance) callStr(ctx context.Context, name string, params ...uint64) (_ abi.Str, _ string, err error) {
	mem := i.mem(ctx)
	out, err := mem.Allocate(uint32(i.layout.StrSize()))
	if err != nil {
		return abi.Str{}, "", err
	}
	defer mem.Deallocate(out)
	if !mem.Write(out, make([]byte, i.layout.StrSize())) {
		return abi.Str{}, "", fmt.Errorf("failed to clear string record at 0x%x", out)
	}

	if _, err := i.call(ctx, name, append(params, out)...); err != nil {
		return abi.Str{}, "", err
	}
	rec, err := i.layout.LoadStr(mem, out)
	if err != nil {
		return abi.Str{}, "", err
	}
	if rec.Owned {
		defer func() {
			if _, ferr := i.call(ctx, fnStrFree, out); ferr != nil && err == nil {
				err = ferr
			}
		}()
	}
	b, err := i.layout.StrBytes(mem, rec)
	if err != nil {
		return rec, "", err
	}
	return rec, string(b), nil
}

// lastError returns the guest's error state as an error.
func (i *Instance) lastError(ctx context.Context) error {
	_, text, err := i.callStr(ctx, fnErrLastDetail)
	if err != nil {
		return err
	}
	detail, err := wireformat.DecodeError([]byte(text))
	if err != nil {
		return err
	}
	if detail == nil {
		return fmt.Errorf("guest reported failure without an error state")
	}
	return detail
}

// array calls an export returning an array header, decodes its strings
// and releases the array with the given destroy export.
func (i *Instance) array(ctx context.Context, name, destroy string, params ...uint64) (_ []string, err error) {
	res, err := i.call1(ctx, name, params...)
	if err != nil {
		return nil, err
	}
	// i32 results carry no guarantee about the upper bits.
	header := uint64(api.DecodeU32(res))
	if header == 0 {
		return nil, i.lastError(ctx)
	}
	defer func() {
		if _, derr := i.call(ctx, destroy, header); derr != nil && err == nil {
			err = derr
		}
	}()

	mem := i.mem(ctx)
	_, recs, err := i.layout.ArrayStrs(mem, header)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(recs))
	for n, rec := range recs {
		b, err := i.layout.StrBytes(mem, rec)
		if err != nil {
			return nil, err
		}
		out[n] = string(b)
	}
	return out, nil
}

func (i *Instance) handle(ctx context.Context, name string, params ...uint64) (Handle, error) {
	h, err := i.call1(ctx, name, params...)
	if err != nil {
		return 0, err
	}
	if h == 0 {
		return 0, i.lastError(ctx)
	}
	return Handle(h), nil
}

func (i *Instance) boolean(ctx context.Context, name string, params ...uint64) error {
	ok, err := i.call1(ctx, name, params...)
	if err != nil {
		return err
	}
	if api.DecodeU32(ok) == 0 {
		return i.lastError(ctx)
	}
	return nil
}

// strArg copies s into guest memory owned by arena.
func strArg(arena *abi.Arena, s string) (ptr, n uint64, err error) {
	ptr, err = arena.Bytes([]byte(s))
	return ptr, uint64(len(s)), err
}

// ErrClear resets the guest's error state.
func (i *Instance) ErrClear(ctx context.Context) error {
	_, err := i.call(ctx, fnErrClear)
	return err
}

// ErrLastCode returns the guest's current error code.
func (i *Instance) ErrLastCode(ctx context.Context) (entities.ErrorCode, error) {
	code, err := i.call1(ctx, fnErrLastCode)
	return entities.ErrorCode(api.DecodeU32(code)), err
}

// ErrLastMessage returns the guest's current error message.
func (i *Instance) ErrLastMessage(ctx context.Context) (string, error) {
	_, text, err := i.callStr(ctx, fnErrLastMessage)
	return text, err
}

// ModelOpen opens a model file at a guest path; see WithDir.
func (i *Instance) ModelOpen(ctx context.Context, path string) (Handle, error) {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	p, n, err := strArg(arena, path)
	if err != nil {
		return 0, err
	}
	return i.handle(ctx, fnModelOpen, p, n)
}

// ModelFromBytes loads a model from data.
func (i *Instance) ModelFromBytes(ctx context.Context, data []byte) (Handle, error) {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	p, err := arena.Bytes(data)
	if err != nil {
		return 0, err
	}
	return i.handle(ctx, fnModelFromBytes, p, uint64(len(data)))
}

// ModelDump writes the text dump of model to a guest path.
func (i *Instance) ModelDump(ctx context.Context, model Handle, path string) error {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	p, n, err := strArg(arena, path)
	if err != nil {
		return err
	}
	return i.boolean(ctx, fnModelDump, uint64(model), p, n)
}

// ModelLabels returns the labels of model.
func (i *Instance) ModelLabels(ctx context.Context, model Handle) ([]string, error) {
	return i.array(ctx, fnModelLabels, fnTagsDestroy, uint64(model))
}

// ModelDestroy releases the host's reference to model.
func (i *Instance) ModelDestroy(ctx context.Context, model Handle) error {
	_, err := i.call(ctx, fnModelDestroy, uint64(model))
	return err
}

// TaggerCreate binds a tagger to model.
func (i *Instance) TaggerCreate(ctx context.Context, model Handle) (Handle, error) {
	return i.handle(ctx, fnTaggerCreate, uint64(model))
}

// TaggerTag returns the most probable labels for items.
func (i *Instance) TaggerTag(ctx context.Context, tagger Handle, items []entities.Item) ([]string, error) {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	xs, err := arena.Items(i.layout, items)
	if err != nil {
		return nil, err
	}
	return i.array(ctx, fnTaggerTag, fnTagsDestroy, uint64(tagger), xs, uint64(len(items)))
}

// TaggerLabels returns the labels of the tagger's model.
func (i *Instance) TaggerLabels(ctx context.Context, tagger Handle) ([]string, error) {
	return i.array(ctx, fnTaggerLabels, fnTagsDestroy, uint64(tagger))
}

// TaggerProbability returns p(labels | items).
func (i *Instance) TaggerProbability(ctx context.Context, tagger Handle, items []entities.Item, labels []string) (float64, error) {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	xs, err := arena.Items(i.layout, items)
	if err != nil {
		return 0, err
	}
	ys, err := arena.Strings(i.layout, labels)
	if err != nil {
		return 0, err
	}
	res, err := i.call1(ctx, fnTaggerProbability, uint64(tagger), xs, uint64(len(items)), ys, uint64(len(labels)))
	if err != nil {
		return 0, err
	}
	if p := api.DecodeF64(res); p >= 0 {
		return p, nil
	}
	return 0, i.lastError(ctx)
}

// TaggerMarginal returns p(y_position = label | items).
func (i *Instance) TaggerMarginal(ctx context.Context, tagger Handle, items []entities.Item, label string, position int) (float64, error) {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	xs, err := arena.Items(i.layout, items)
	if err != nil {
		return 0, err
	}
	l, n, err := strArg(arena, label)
	if err != nil {
		return 0, err
	}
	res, err := i.call1(ctx, fnTaggerMarginal, uint64(tagger), xs, uint64(len(items)), l, n, api.EncodeI32(int32(position)))
	if err != nil {
		return 0, err
	}
	if p := api.DecodeF64(res); p >= 0 {
		return p, nil
	}
	return 0, i.lastError(ctx)
}

// TaggerDestroy releases tagger.
func (i *Instance) TaggerDestroy(ctx context.Context, tagger Handle) error {
	_, err := i.call(ctx, fnTaggerDestroy, uint64(tagger))
	return err
}

// TrainerCreate starts a training session. Verbose sessions log through
// the host module.
func (i *Instance) TrainerCreate(ctx context.Context, verbose bool) (Handle, error) {
	var v uint64
	if verbose {
		v = 1
	}
	return i.handle(ctx, fnTrainerCreate, v)
}

// TrainerSelect selects a training algorithm by name or alias.
func (i *Instance) TrainerSelect(ctx context.Context, trainer Handle, name string) error {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	p, n, err := strArg(arena, name)
	if err != nil {
		return err
	}
	return i.boolean(ctx, fnTrainerSelect, uint64(trainer), p, n)
}

// TrainerClear discards appended sequences.
func (i *Instance) TrainerClear(ctx context.Context, trainer Handle) error {
	return i.boolean(ctx, fnTrainerClear, uint64(trainer))
}

// TrainerAppend adds one labeled sequence in holdout group group.
func (i *Instance) TrainerAppend(ctx context.Context, trainer Handle, items []entities.Item, labels []string, group int32) error {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	xs, err := arena.Items(i.layout, items)
	if err != nil {
		return err
	}
	ys, err := arena.Strings(i.layout, labels)
	if err != nil {
		return err
	}
	return i.boolean(ctx, fnTrainerAppend, uint64(trainer),
		xs, uint64(len(items)), ys, uint64(len(labels)), api.EncodeI32(group))
}

// TrainerTrain trains and writes the model to a guest path.
func (i *Instance) TrainerTrain(ctx context.Context, trainer Handle, path string, holdout int32) error {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	p, n, err := strArg(arena, path)
	if err != nil {
		return err
	}
	return i.boolean(ctx, fnTrainerTrain, uint64(trainer), p, n, api.EncodeI32(holdout))
}

// TrainerSet sets a parameter of the selected algorithm.
func (i *Instance) TrainerSet(ctx context.Context, trainer Handle, name, value string) error {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	k, kn, err := strArg(arena, name)
	if err != nil {
		return err
	}
	v, vn, err := strArg(arena, value)
	if err != nil {
		return err
	}
	return i.boolean(ctx, fnTrainerSet, uint64(trainer), k, kn, v, vn)
}

func (i *Instance) paramString(ctx context.Context, fn string, trainer Handle, name string) (string, error) {
	arena := abi.NewArena(i.mem(ctx))
	defer arena.Free()
	k, kn, err := strArg(arena, name)
	if err != nil {
		return "", err
	}
	rec, text, err := i.callStr(ctx, fn, uint64(trainer), k, kn)
	if err != nil {
		return "", err
	}
	// An empty value is an owned string with no storage.
	if rec.IsZero() && !rec.Owned {
		return "", i.lastError(ctx)
	}
	return text, nil
}

// TrainerGet returns the current value of a parameter.
func (i *Instance) TrainerGet(ctx context.Context, trainer Handle, name string) (string, error) {
	return i.paramString(ctx, fnTrainerGet, trainer, name)
}

// TrainerHelp returns the help text of a parameter.
func (i *Instance) TrainerHelp(ctx context.Context, trainer Handle, name string) (string, error) {
	return i.paramString(ctx, fnTrainerHelp, trainer, name)
}

// TrainerParams returns the parameter names of the selected algorithm.
func (i *Instance) TrainerParams(ctx context.Context, trainer Handle) ([]string, error) {
	return i.array(ctx, fnTrainerParams, fnParamsDestroy, uint64(trainer))
}

// TrainerNumInstances returns the number of appended sequences.
func (i *Instance) TrainerNumInstances(ctx context.Context, trainer Handle) (int, error) {
	res, err := i.call1(ctx, fnTrainerNumInstances, uint64(trainer))
	if err != nil {
		return 0, err
	}
	if n := api.DecodeI32(res); n >= 0 {
		return int(n), nil
	}
	return 0, i.lastError(ctx)
}

// TrainerAlgorithm returns the selected algorithm, or "" when none is.
func (i *Instance) TrainerAlgorithm(ctx context.Context, trainer Handle) (string, error) {
	rec, text, err := i.callStr(ctx, fnTrainerAlgorithm, uint64(trainer))
	if err != nil {
		return "", err
	}
	if rec.IsZero() {
		if code, err := i.ErrLastCode(ctx); err != nil || code != entities.ErrorCodeNoError {
			return "", i.lastError(ctx)
		}
	}
	return text, nil
}

// TrainerReport returns the report of the last successful run, or nil.
func (i *Instance) TrainerReport(ctx context.Context, trainer Handle) (*entities.TrainingReport, error) {
	_, text, err := i.callStr(ctx, fnTrainerReport, uint64(trainer))
	if err != nil {
		return nil, err
	}
	if code, err := i.ErrLastCode(ctx); err != nil || code != entities.ErrorCodeNoError {
		return nil, i.lastError(ctx)
	}
	if text == "" || text == "null" {
		return nil, nil
	}
	r, err := wireformat.DecodeReport([]byte(text))
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// TrainerDestroy ends the session.
func (i *Instance) TrainerDestroy(ctx context.Context, trainer Handle) error {
	_, err := i.call(ctx, fnTrainerDestroy, uint64(trainer))
	return err
}

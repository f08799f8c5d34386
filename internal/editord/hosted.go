package editord

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/rs/zerolog"
)

// hostedSetupScript provisions the delegated fold installer in the hosted
// interpreter. It is registered once at startup; clients invoke it with the
// full list of 1-based [start, end] pairs and the loop runs remotely.
const hostedSetupScript = `
function setFolds(pairs) {
	editor.clearFolds();
	for (var i = 0; i < pairs.length; i++) {
		editor.createFold(pairs[i][0], pairs[i][1]);
	}
	return pairs.length;
}
`

// HostedRuntime wraps a goja VM exposing the editor's fold surface to
// hosted-interpreter snippets
type HostedRuntime struct {
	vm     *goja.Runtime
	store  *FoldStore
	logger zerolog.Logger
}

// NewHostedRuntime creates a HostedRuntime bound to the given store and
// provisions the registered delegate procedures
func NewHostedRuntime(store *FoldStore, logger zerolog.Logger) (*HostedRuntime, error) {
	r := &HostedRuntime{
		vm:     goja.New(),
		store:  store,
		logger: logger.With().Str("component", "hosted").Logger(),
	}
	r.setupBindings()
	if _, err := r.vm.RunString(hostedSetupScript); err != nil {
		return nil, fmt.Errorf("failed to provision hosted delegates: %w", err)
	}
	return r, nil
}

// setupBindings sets up the editor and console objects
func (r *HostedRuntime) setupBindings() {
	editor := r.vm.NewObject()

	editor.Set("clearFolds", func(call goja.FunctionCall) goja.Value {
		r.store.Clear()
		return goja.Undefined()
	})

	editor.Set("createFold", func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			panic(r.vm.ToValue("createFold requires start and end"))
		}
		start := int(call.Arguments[0].ToInteger())
		end := int(call.Arguments[1].ToInteger())
		if err := r.store.Create(start, end); err != nil {
			panic(r.vm.ToValue(err.Error()))
		}
		return goja.Undefined()
	})

	r.vm.Set("editor", editor)

	console := r.vm.NewObject()
	console.Set("log", func(call goja.FunctionCall) goja.Value {
		args := make([]interface{}, len(call.Arguments))
		for i, arg := range call.Arguments {
			args[i] = arg.Export()
		}
		r.logger.Info().Msgf("[hosted] %v", args)
		return goja.Undefined()
	})
	r.vm.Set("console", console)
}

// Exec runs a snippet with the given positional arguments bound to the
// global "args" array and returns the exported result
func (r *HostedRuntime) Exec(src string, args []interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	r.vm.Set("args", args)
	v, err := r.vm.RunString(src)
	if err != nil {
		if ex, ok := err.(*goja.Exception); ok {
			return nil, fmt.Errorf("hosted snippet failed: %s", ex.Value().String())
		}
		return nil, fmt.Errorf("hosted snippet failed: %w", err)
	}
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}
	return v.Export(), nil
}

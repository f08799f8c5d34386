// Package editord emulates the remote editor process the fold dispatcher
// talks to. It implements the full command surface the dispatcher consumes:
// a command-string interpreter, a named-function call into the editor's
// primary scripting facility (Lua), a hosted-interpreter snippet runner
// (JavaScript), and an atomic multi-call executor. Delegate procedures for
// the delegated dispatch strategies are provisioned at startup.
package editord

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"foldsync/internal/jsonrpc"
)

// RPC method names exposed by the editor, defined with the rest of the wire
// contract in the jsonrpc package
const (
	MethodCommand      = jsonrpc.MethodCommand
	MethodCallFunction = jsonrpc.MethodCallFunction
	MethodExecHosted   = jsonrpc.MethodExecHosted
	MethodListFolds    = jsonrpc.MethodListFolds
	MethodResize       = jsonrpc.MethodResize
)

// Editor is the in-process emulated editor. Requests are executed strictly
// in submission order under a single lock; an atomic multi-call holds the
// lock for its whole duration so no other caller can interleave.
type Editor struct {
	mu     sync.Mutex
	store  *FoldStore
	hosted *HostedRuntime
	luafn  *LuaRuntime
	logger zerolog.Logger
}

// New creates an Editor with a buffer of the given line count
// (0 means unbounded)
func New(lineCount int, logger zerolog.Logger) (*Editor, error) {
	store := NewFoldStore(lineCount)

	hosted, err := NewHostedRuntime(store, logger)
	if err != nil {
		return nil, err
	}
	luafn, err := NewLuaRuntime(store, logger)
	if err != nil {
		return nil, err
	}

	return &Editor{
		store:  store,
		hosted: hosted,
		luafn:  luafn,
		logger: logger.With().Str("component", "editord").Logger(),
	}, nil
}

// Close releases the interpreter states
func (e *Editor) Close() {
	e.luafn.Close()
}

// Folds returns the installed folds as 1-based pairs in creation order
func (e *Editor) Folds() [][2]int {
	return e.store.Folds()
}

// Handle executes one request and returns its response
func (e *Editor) Handle(req *jsonrpc.Request) *jsonrpc.Response {
	if err := req.Validate(); err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInvalidRequest)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if req.Method == jsonrpc.MethodCallAtomic {
		return e.handleAtomic(req)
	}

	result, rpcErr := e.execCall(req.Method, req.Params)
	if rpcErr != nil {
		return jsonrpc.NewErrorResponse(req.ID, rpcErr)
	}
	if result == nil {
		result = json.RawMessage("null")
	}
	return jsonrpc.NewResponseRaw(req.ID, result)
}

// handleAtomic executes an ordered list of sub-calls, stopping at the first
// failure. The result reports the index of the failing entry; side effects
// of earlier entries remain applied.
func (e *Editor) handleAtomic(req *jsonrpc.Request) *jsonrpc.Response {
	calls, err := jsonrpc.ParseAtomicCalls(req.Params)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidParams, err.Error()))
	}

	result := jsonrpc.AtomicResult{Results: make([]json.RawMessage, 0, len(calls))}
	for i, call := range calls {
		if call.Method == jsonrpc.MethodCallAtomic {
			result.Err = &jsonrpc.AtomicError{Index: i, Message: "atomic calls cannot nest"}
			break
		}
		params, merr := json.Marshal(call.Params)
		if merr != nil {
			result.Err = &jsonrpc.AtomicError{Index: i, Message: merr.Error()}
			break
		}
		callResult, rpcErr := e.execCall(call.Method, params)
		if rpcErr != nil {
			result.Err = &jsonrpc.AtomicError{Index: i, Message: rpcErr.Message}
			break
		}
		if callResult == nil {
			callResult = json.RawMessage("null")
		}
		result.Results = append(result.Results, callResult)
	}

	resp, rerr := jsonrpc.NewResponse(req.ID, result)
	if rerr != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.ErrInternal)
	}
	return resp
}

// execCall runs a single non-atomic method and marshals its result.
// Caller holds e.mu.
func (e *Editor) execCall(method string, params json.RawMessage) (json.RawMessage, *jsonrpc.Error) {
	var result interface{}
	var rpcErr *jsonrpc.Error

	switch method {
	case MethodCommand:
		result, rpcErr = e.execCommand(params)
	case MethodCallFunction:
		result, rpcErr = e.execCallFunction(params)
	case MethodExecHosted:
		result, rpcErr = e.execHosted(params)
	case MethodListFolds:
		result = e.store.Folds()
	case MethodResize:
		result, rpcErr = e.execResize(params)
	default:
		return nil, jsonrpc.ErrMethodNotFound
	}

	if rpcErr != nil {
		return nil, rpcErr
	}
	if result == nil {
		return nil, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, jsonrpc.ErrInternal
	}
	return raw, nil
}

// execCommand runs one command string; params: [command]
func (e *Editor) execCommand(params json.RawMessage) (interface{}, *jsonrpc.Error) {
	var args []string
	if err := json.Unmarshal(params, &args); err != nil || len(args) != 1 {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "command requires [command-string]")
	}

	cmd := args[0]
	e.logger.Debug().Str("command", cmd).Msg("executing command")
	if err := runCommand(e.store, cmd); err != nil {
		return nil, jsonrpc.NewErrorWithData(jsonrpc.CodeCommandRejected, err.Error(),
			map[string]string{"command": cmd})
	}
	return nil, nil
}

// execResize changes the emulated buffer's line count; params: [lineCount]
func (e *Editor) execResize(params json.RawMessage) (interface{}, *jsonrpc.Error) {
	var args []int
	if err := json.Unmarshal(params, &args); err != nil || len(args) != 1 {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "resize requires [lineCount]")
	}
	if args[0] < 0 {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "lineCount must be non-negative")
	}

	e.logger.Debug().Int("lineCount", args[0]).Msg("buffer resized")
	e.store.SetLineCount(args[0])
	return e.store.LineCount(), nil
}

// execCallFunction calls a registered Lua function; params: [name, args]
func (e *Editor) execCallFunction(params json.RawMessage) (interface{}, *jsonrpc.Error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil || len(raw) != 2 {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "callFunction requires [name, args]")
	}

	var name string
	if err := json.Unmarshal(raw[0], &name); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "function name must be a string")
	}
	var fnArgs []interface{}
	if err := json.Unmarshal(raw[1], &fnArgs); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "function args must be an array")
	}

	e.logger.Debug().Str("function", name).Msg("calling function")
	result, err := e.luafn.CallFunction(name, fnArgs...)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeCommandRejected, err.Error())
	}
	return result, nil
}

// execHosted runs a hosted-interpreter snippet; params: [src, args]
func (e *Editor) execHosted(params json.RawMessage) (interface{}, *jsonrpc.Error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(params, &raw); err != nil || len(raw) != 2 {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "execHosted requires [src, args]")
	}

	var src string
	if err := json.Unmarshal(raw[0], &src); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "snippet source must be a string")
	}
	var snippetArgs []interface{}
	if err := json.Unmarshal(raw[1], &snippetArgs); err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeInvalidParams, "snippet args must be an array")
	}

	e.logger.Debug().Msg("executing hosted snippet")
	result, err := e.hosted.Exec(src, snippetArgs)
	if err != nil {
		return nil, jsonrpc.NewError(jsonrpc.CodeCommandRejected, err.Error())
	}
	return result, nil
}

// String describes the editor state for logs
func (e *Editor) String() string {
	return fmt.Sprintf("editor(folds=%d)", len(e.store.Folds()))
}

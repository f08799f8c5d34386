package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// MethodCallAtomic is the method name for atomic multi-call requests.
// Params are an ordered array of [method, params] pairs; the remote executes
// them in submission order and stops at the first failure.
const MethodCallAtomic = "editor.callAtomic"

// AtomicCall represents one sub-call inside an atomic multi-call.
// On the wire it is a 2-element array: [method, params].
type AtomicCall struct {
	Method string
	Params interface{}
}

// MarshalJSON implements json.Marshaler
func (c AtomicCall) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{c.Method, c.Params})
}

// UnmarshalJSON implements json.Unmarshaler
func (c *AtomicCall) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("atomic call must be an array: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("atomic call must have 2 elements, got %d", len(pair))
	}
	if err := json.Unmarshal(pair[0], &c.Method); err != nil {
		return fmt.Errorf("atomic call method must be a string: %w", err)
	}
	var params interface{}
	if err := json.Unmarshal(pair[1], &params); err != nil {
		return fmt.Errorf("failed to parse atomic call params: %w", err)
	}
	c.Params = params
	return nil
}

// AtomicError identifies the first failing entry of an atomic multi-call.
// On the wire it is a 2-element array: [index, message].
type AtomicError struct {
	Index   int
	Message string
}

// Error implements the error interface
func (e *AtomicError) Error() string {
	return fmt.Sprintf("atomic call entry %d failed: %s", e.Index, e.Message)
}

// AtomicResult is the result of an atomic multi-call: the results of the
// sub-calls completed before the first failure, plus the failure itself
// (nil when every entry succeeded). On the wire it is a 2-element array:
// [results, error-or-null].
type AtomicResult struct {
	Results []json.RawMessage
	Err     *AtomicError
}

// MarshalJSON implements json.Marshaler
func (r AtomicResult) MarshalJSON() ([]byte, error) {
	results := r.Results
	if results == nil {
		results = []json.RawMessage{}
	}
	if r.Err == nil {
		return json.Marshal([]interface{}{results, nil})
	}
	return json.Marshal([]interface{}{results, []interface{}{r.Err.Index, r.Err.Message}})
}

// UnmarshalJSON implements json.Unmarshaler
func (r *AtomicResult) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err != nil {
		return fmt.Errorf("atomic result must be an array: %w", err)
	}
	if len(tuple) != 2 {
		return fmt.Errorf("atomic result must have 2 elements, got %d", len(tuple))
	}
	if err := json.Unmarshal(tuple[0], &r.Results); err != nil {
		return fmt.Errorf("failed to parse atomic results: %w", err)
	}
	if string(tuple[1]) == "null" {
		r.Err = nil
		return nil
	}
	var errTuple []json.RawMessage
	if err := json.Unmarshal(tuple[1], &errTuple); err != nil {
		return fmt.Errorf("atomic error must be an array: %w", err)
	}
	if len(errTuple) != 2 {
		return fmt.Errorf("atomic error must have 2 elements, got %d", len(errTuple))
	}
	atomicErr := &AtomicError{}
	if err := json.Unmarshal(errTuple[0], &atomicErr.Index); err != nil {
		return fmt.Errorf("atomic error index must be a number: %w", err)
	}
	if err := json.Unmarshal(errTuple[1], &atomicErr.Message); err != nil {
		return fmt.Errorf("atomic error message must be a string: %w", err)
	}
	r.Err = atomicErr
	return nil
}

// NewAtomicRequest creates an atomic multi-call request wrapping the given
// ordered sub-calls
func NewAtomicRequest(calls []AtomicCall, id ID) (*Request, error) {
	return NewRequest(MethodCallAtomic, calls, id)
}

// ParseAtomicCalls parses the params of an atomic multi-call request
func ParseAtomicCalls(params json.RawMessage) ([]AtomicCall, error) {
	var calls []AtomicCall
	if err := json.Unmarshal(params, &calls); err != nil {
		return nil, fmt.Errorf("failed to parse atomic calls: %w", err)
	}
	if len(calls) == 0 {
		return nil, fmt.Errorf("atomic call requires at least one entry")
	}
	return calls, nil
}

package editord

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"foldsync/internal/jsonrpc"
)

func newTestEditor(t *testing.T) *Editor {
	t.Helper()
	editor, err := New(1000, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(editor.Close)
	return editor
}

func handle(t *testing.T, editor *Editor, method string, params interface{}) *jsonrpc.Response {
	t.Helper()
	req, err := jsonrpc.NewRequest(method, params, jsonrpc.NewIDInt(1))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return editor.Handle(req)
}

func TestEditor_Command(t *testing.T) {
	editor := newTestEditor(t)

	resp := handle(t, editor, MethodCommand, []string{"1,5fo"})
	if resp.HasError() {
		t.Fatalf("command failed: %v", resp.Error)
	}

	folds := editor.Folds()
	if len(folds) != 1 || folds[0] != [2]int{1, 5} {
		t.Errorf("folds = %v, want [[1 5]]", folds)
	}
}

func TestEditor_CommandRejected(t *testing.T) {
	editor := newTestEditor(t)

	resp := handle(t, editor, MethodCommand, []string{"9,4fo"})
	if !resp.HasError() {
		t.Fatal("inverted range should be rejected")
	}
	if resp.Error.Code != jsonrpc.CodeCommandRejected {
		t.Errorf("error code = %d, want %d", resp.Error.Code, jsonrpc.CodeCommandRejected)
	}

	// The offending command rides along as error data.
	var data map[string]string
	if err := json.Unmarshal(resp.Error.Data, &data); err != nil {
		t.Fatalf("unmarshal error data: %v", err)
	}
	if data["command"] != "9,4fo" {
		t.Errorf("error data command = %q, want 9,4fo", data["command"])
	}
}

func TestEditor_Resize(t *testing.T) {
	editor := newTestEditor(t)

	resp := handle(t, editor, MethodResize, []int{10})
	if resp.HasError() {
		t.Fatalf("resize failed: %v", resp.Error)
	}
	var lineCount int
	if err := resp.GetResultAs(&lineCount); err != nil {
		t.Fatalf("GetResultAs: %v", err)
	}
	if lineCount != 10 {
		t.Errorf("line count = %d, want 10", lineCount)
	}

	resp = handle(t, editor, MethodCommand, []string{"5,20fo"})
	if !resp.HasError() {
		t.Fatal("fold past the shrunken buffer should be rejected")
	}

	resp = handle(t, editor, MethodResize, []int{30})
	if resp.HasError() {
		t.Fatalf("resize failed: %v", resp.Error)
	}
	resp = handle(t, editor, MethodCommand, []string{"5,20fo"})
	if resp.HasError() {
		t.Fatalf("fold within the grown buffer failed: %v", resp.Error)
	}
	if folds := editor.Folds(); len(folds) != 1 || folds[0] != [2]int{5, 20} {
		t.Errorf("folds = %v, want [[5 20]]", folds)
	}

	resp = handle(t, editor, MethodResize, []int{-1})
	if !resp.HasError() {
		t.Error("negative line count should be rejected")
	}
}

func TestEditor_CallFunction(t *testing.T) {
	editor := newTestEditor(t)

	pairs := []interface{}{[]interface{}{1, 5}, []interface{}{11, 13}}
	resp := handle(t, editor, MethodCallFunction, []interface{}{"setfolds", []interface{}{pairs}})
	if resp.HasError() {
		t.Fatalf("callFunction failed: %v", resp.Error)
	}

	var count float64
	if err := resp.GetResultAs(&count); err != nil {
		t.Fatalf("GetResultAs: %v", err)
	}
	if count != 2 {
		t.Errorf("setfolds returned %v, want 2", count)
	}

	folds := editor.Folds()
	if len(folds) != 2 || folds[0] != [2]int{1, 5} || folds[1] != [2]int{11, 13} {
		t.Errorf("folds = %v, want [[1 5] [11 13]]", folds)
	}
}

func TestEditor_CallFunction_Unknown(t *testing.T) {
	editor := newTestEditor(t)

	resp := handle(t, editor, MethodCallFunction, []interface{}{"nosuchfn", []interface{}{}})
	if !resp.HasError() {
		t.Fatal("unknown function should fail")
	}
}

func TestEditor_ExecHosted(t *testing.T) {
	editor := newTestEditor(t)

	pairs := []interface{}{[]interface{}{1, 5}}
	resp := handle(t, editor, MethodExecHosted, []interface{}{"setFolds(args[0])", []interface{}{pairs}})
	if resp.HasError() {
		t.Fatalf("execHosted failed: %v", resp.Error)
	}

	folds := editor.Folds()
	if len(folds) != 1 || folds[0] != [2]int{1, 5} {
		t.Errorf("folds = %v, want [[1 5]]", folds)
	}
}

func TestEditor_ExecHosted_BadRange(t *testing.T) {
	editor := newTestEditor(t)

	pairs := []interface{}{[]interface{}{10, 4}}
	resp := handle(t, editor, MethodExecHosted, []interface{}{"setFolds(args[0])", []interface{}{pairs}})
	if !resp.HasError() {
		t.Fatal("inverted range should fail in the hosted delegate")
	}
	if len(editor.Folds()) != 0 {
		t.Error("no folds should survive a failed delegate call")
	}
}

func TestEditor_Atomic(t *testing.T) {
	editor := newTestEditor(t)

	calls := []jsonrpc.AtomicCall{
		{Method: MethodCommand, Params: []string{"normal! zE"}},
		{Method: MethodCommand, Params: []string{"1,5fo"}},
		{Method: MethodCommand, Params: []string{"11,13fo"}},
	}
	req, err := jsonrpc.NewAtomicRequest(calls, jsonrpc.NewIDInt(7))
	if err != nil {
		t.Fatalf("NewAtomicRequest: %v", err)
	}

	resp := editor.Handle(req)
	if resp.HasError() {
		t.Fatalf("atomic call failed: %v", resp.Error)
	}

	var result jsonrpc.AtomicResult
	if err := resp.GetResultAs(&result); err != nil {
		t.Fatalf("GetResultAs: %v", err)
	}
	if result.Err != nil {
		t.Fatalf("atomic result error: %v", result.Err)
	}
	if len(result.Results) != 3 {
		t.Errorf("results len = %d, want 3", len(result.Results))
	}

	folds := editor.Folds()
	if len(folds) != 2 {
		t.Errorf("folds = %v, want 2 entries", folds)
	}
}

func TestEditor_Atomic_FirstFailureIndex(t *testing.T) {
	editor := newTestEditor(t)

	calls := []jsonrpc.AtomicCall{
		{Method: MethodCommand, Params: []string{"normal! zE"}},
		{Method: MethodCommand, Params: []string{"1,5fo"}},
		{Method: MethodCommand, Params: []string{"9,4fo"}},
		{Method: MethodCommand, Params: []string{"20,30fo"}},
	}
	req, err := jsonrpc.NewAtomicRequest(calls, jsonrpc.NewIDInt(8))
	if err != nil {
		t.Fatalf("NewAtomicRequest: %v", err)
	}

	resp := editor.Handle(req)
	if resp.HasError() {
		t.Fatalf("atomic call failed at transport level: %v", resp.Error)
	}

	var result jsonrpc.AtomicResult
	if err := resp.GetResultAs(&result); err != nil {
		t.Fatalf("GetResultAs: %v", err)
	}
	if result.Err == nil {
		t.Fatal("atomic result should carry the failure")
	}
	if result.Err.Index != 2 {
		t.Errorf("failure index = %d, want 2", result.Err.Index)
	}
	if len(result.Results) != 2 {
		t.Errorf("results before failure = %d, want 2", len(result.Results))
	}

	// Entries before the failure stay applied; entries after are not run.
	folds := editor.Folds()
	if len(folds) != 1 || folds[0] != [2]int{1, 5} {
		t.Errorf("folds = %v, want [[1 5]]", folds)
	}
}

func TestEditor_ListFolds(t *testing.T) {
	editor := newTestEditor(t)

	handle(t, editor, MethodCommand, []string{"3,9fo"})
	resp := handle(t, editor, MethodListFolds, nil)
	if resp.HasError() {
		t.Fatalf("listFolds failed: %v", resp.Error)
	}

	var folds [][2]int
	if err := json.Unmarshal(resp.Result, &folds); err != nil {
		t.Fatalf("unmarshal folds: %v", err)
	}
	if len(folds) != 1 || folds[0] != [2]int{3, 9} {
		t.Errorf("folds = %v, want [[3 9]]", folds)
	}
}

func TestEditor_MethodNotFound(t *testing.T) {
	editor := newTestEditor(t)

	resp := handle(t, editor, "editor.unknown", nil)
	if !resp.HasError() || resp.Error.Code != jsonrpc.CodeMethodNotFound {
		t.Errorf("unknown method should return method-not-found, got %v", resp.Error)
	}
}

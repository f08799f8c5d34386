package jsonrpc

// Editor RPC method names. These are the remote command surface the
// dispatcher consumes; the editor process implements them.
const (
	// MethodCommand runs one command string; params: [command]
	MethodCommand = "editor.command"
	// MethodCallFunction calls a function registered in the editor's
	// primary scripting facility; params: [name, args]
	MethodCallFunction = "editor.callFunction"
	// MethodExecHosted runs a hosted-interpreter snippet; params: [src, args]
	MethodExecHosted = "editor.execHosted"
	// MethodListFolds returns the installed folds as 1-based pairs
	MethodListFolds = "editor.listFolds"
	// MethodResize changes the buffer's line count; params: [lineCount].
	// Returns the new line count.
	MethodResize = "editor.resize"
)

/*
Package sandbox runs untrusted learner source inside an embedded interpreter.

# Overview

A Host owns exactly one interpreter runtime per workspace. The runtime is
loaded lazily on the first run request and kept for the lifetime of the
workspace:

	Unloaded --(EnsureLoaded)--> Loading --(success)--> Ready
	                                     \--(failure)--> Failed

Concurrent callers that arrive while a load is in flight wait on the same
load; a second load is never started. Failed is sticky until Retry is called
explicitly.

# Execution

Run gives the engine a fresh in-memory stdout sink, executes the source and
reads the sink back once execution ends. Output is all-or-nothing: when the
program raises, the partial output is dropped and only the error text is
returned. Errors never escape Run as Go errors; they are reported in
Result.Error so callers can render them verbatim.

# Engine

The default engine is a goja VM with host access removed (require, process,
module, exports), a Python-style print builtin, no-op timers and a small
bootstrap prelude. The prelude is either embedded or fetched from a URL, which
is what makes loading a suspension point.

# Usage Example

	host := sandbox.NewHost(sandbox.NewGojaLoader(sandbox.DefaultEngineConfig(), nil), sandbox.DefaultConfig(), logger)
	defer host.Close()

	res := host.Run(ctx, "print('hi')")
	if res.Error != nil {
		// render res.Error.Message in the terminal pane
	}
*/
package sandbox

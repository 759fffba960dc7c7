// Package invoker resolves agent implementation declarations into callable
// units satisfying the core.Invoker contract. Implementations are addressed
// by a scheme-prefixed path:
//
//	function:summarize            in-process Go function registered on the Registry
//	command:python debriefer.py   external process, JSON on stdin/stdout
//	anthropic:<model>             model-backed invoker (subpackage anthropic)
//	openai:<model>                model-backed invoker (subpackage openai)
//
// The model-backed subpackages register themselves on a Registry explicitly
// so that programs not using them do not link the provider SDK.
package invoker

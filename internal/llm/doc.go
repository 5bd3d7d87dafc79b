// Package llm contains the provider-neutral pieces of the adapter: the
// parameter mapping handed to remote calls and the normalization of JSON text
// input into structured values. Provider clients live in subpackages
// (internal/llm/openai) and the cancellation guard in internal/llm/guard.
package llm

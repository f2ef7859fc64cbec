// Package model defines the provider-neutral language model contract used by
// the run loop, together with the normalized request/response, tool
// definition and token usage types shared by all adapters. Concrete
// implementations live in the model/anthropic and model/openai subpackages;
// MockModel provides a scriptable in-memory implementation for tests.
package model

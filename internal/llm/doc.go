// Package llm contains adapters for invoking large language models. It
// abstracts away provider-specific APIs and normalizes request/response
// lifecycles for the operation service sitting above it.
package llm

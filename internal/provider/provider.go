// Package provider defines the LLM client contract consumed by the agent
// engine, the message and tool-call types exchanged with it, and a
// health-aware failover chain that composes several clients into one.
package provider

import "context"

// Provider is the interface for communicating with an LLM.
// Concrete implementations live under modules/provider. Implementations hold
// no per-task state and may be shared across agent instances.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	// The returned text may be empty when the model only requests tool calls.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

// HealthChecker is an optional interface that providers may implement
// to support active health probing. When a provider is in cooldown or
// marked dead, the chain calls HealthCheck periodically to detect recovery.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

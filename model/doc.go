// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside agentlab.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition, core.FunctionCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate offline runs and tests (ScriptedModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (agents, meetings) remain decoupled from vendor SDKs.
// RateLimited throttles any Model with a token bucket.
package model

// Package agent implements the reasoning side of agentlab: personas, the
// tool-using agent loop and the team designer.
//
// An Agent pairs a Persona with a backend model. Run drives the loop:
//
//  1. The persona instruction and the task (with optional prior context)
//     open a fresh conversation.
//  2. Each iteration sends the conversation and the tool schema to the
//     backend. A reply without tool calls ends the loop (StatusCompleted).
//  3. Otherwise every requested call is dispatched through the tool executor
//     and its result appended, in request order, before the next iteration.
//  4. When the iteration cap is reached with tools still pending the loop
//     stops softly (StatusIterationLimit) with the last text as answer.
//
// Backend failures are retried with exponential backoff; an exhausted budget
// returns a *BackendError matching ErrBackendUnavailable. Tool failures never
// abort a loop, they become tool results the backend can react to.
//
// Personas are immutable values. Lead and Critic are fixed; specialists are
// chosen per question by a TeamDesigner, which falls back to DefaultTeam when
// the backend's proposal is unusable.
package agent

// Package core provides the foundational domain types and execution contexts
// shared by every agentlab package:
//
//   - Content / Part values describing one conversation message, including
//     function (tool) call requests and their responses
//   - Conversation, the append-only message trace owned by one agent
//   - RunContext, the explicit per-run scope (workspace, artifact store,
//     notebook, logger) handed to every tool dispatch
//   - ToolContext, the constrained surface a tool implementation sees
//   - ModelLimiter, the iteration counter that bounds an agent loop
//
// Concrete agents, tools and backends live in sibling packages and depend on
// the small interfaces declared here.
package core

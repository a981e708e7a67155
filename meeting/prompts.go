package meeting

import "github.com/hupe1980/agentlab/internal/util"

var (
	openingPrompt = util.MustParse("opening", `
Research question: {{.Question}}

You are opening a research meeting with {{join ", " .Specialists}}. The
discussion runs for {{.Rounds}} round(s). Frame the question, name the key
sub-questions and say what each specialist should focus on.`)

	contributionPrompt = util.MustParse("contribution", `
Research question: {{.Question}}

This is round {{.Round}} of {{.Rounds}}. Contribute from your expertise and
build on the discussion so far. Check facts, query data and run analyses with
the available tools instead of guessing, and report concrete numbers.`)

	critiquePrompt = util.MustParse("critique", `
Research question: {{.Question}}

Review the contributions of round {{.Round}}. List the flaws: unsupported
claims, calculation or logic errors, hidden assumptions and parts of the
question nobody addressed.`)

	synthesisPrompt = util.MustParse("synthesis", `
Research question: {{.Question}}

Synthesize round {{.Round}} of {{.Rounds}}: integrate the contributions, take
the critic's points into account and resolve disagreements.
{{- if .Last}} Then state what the team now believes and why.
{{- else}} Then set the questions the team should work on in round {{inc .Round}}.{{end}}`)

	finalPrompt = util.MustParse("final", `
Research question: {{.Question}}

The meeting is over. Write the final answer to the research question based
on the whole discussion. Be direct, support each claim with the evidence the
team gathered and state the remaining uncertainty.`)

	planPrompt = util.MustParse("plan", `
Research question: {{.Question}}

Break the question into at most {{.MaxSubtasks}} sequential subtasks that
together answer it. Later subtasks see the results of earlier ones. Assign
each subtask to one specialist, or to two when the second should review and
complete the first one's work. The team:
{{bullets .Team}}

Reply with a single json block of this exact shape:

`+"```json"+`
{"subtasks": [{"description": "...", "assignees": ["<title>"], "expected_output": "..."}]}
`+"```")

	executePrompt = util.MustParse("execute", `
Research question: {{.Question}}

Your subtask ({{.Subtask.Index}} of {{.Total}}): {{.Subtask.Description}}
{{- if .Subtask.ExpectedOutput}}
Expected output: {{.Subtask.ExpectedOutput}}
{{- end}}
{{- if .Flags}}

A previous attempt was rejected for these problems. Address every one:
{{range .Flags}}- [{{.Severity}}] {{.Description}}
{{end}}
{{- end}}

Use the available tools where they help and return the complete result of
this subtask.`)

	reviewPrompt = util.MustParse("review", `
Research question: {{.Question}}

Subtask {{.Subtask.Index}} of {{.Total}}: {{.Subtask.Description}}
{{- if .Subtask.ExpectedOutput}}
Expected output: {{.Subtask.ExpectedOutput}}
{{- end}}

Your teammate {{.Drafter}} drafted the result below. Check it, correct errors,
fill gaps and return the complete integrated result of the subtask.

Draft:
{{.Draft}}`)

	gatePrompt = util.MustParse("gate", `
Research question: {{.Question}}

Subtask {{.Subtask.Index}}: {{.Subtask.Description}}
{{- if .Subtask.ExpectedOutput}}
Expected output: {{.Subtask.ExpectedOutput}}
{{- end}}

Result to check:
{{.Result}}

Raise a red flag for every problem that makes this result wrong, incomplete
or unsupported. Reply with a single json block of this exact shape, with an
empty list when the result is acceptable:

`+"```json"+`
{"red_flags": [{"description": "...", "severity": "low|medium|high"}]}
`+"```")

	subtaskFinalPrompt = util.MustParse("subtask_final", `
Research question: {{.Question}}

All subtasks are done; their results are above. Write the final answer to the
research question. Support each claim with the subtask results and list any
unresolved red flags as limitations.`)
)

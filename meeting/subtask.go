package meeting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/internal/telemetry"
	"github.com/hupe1980/agentlab/model"
)

// SubtaskMeeting has the lead break the question into sequential subtasks.
// Each subtask is executed by its assignees and checked by the critic; a
// flagged result is retried with the flags as feedback until it passes or
// the retry budget runs out, in which case it is force-accepted with its
// flags kept. The lead then synthesizes the subtask results.
type SubtaskMeeting struct {
	base
}

// NewSubtask creates a subtask meeting backed by m.
func NewSubtask(m model.Model, optFns ...func(o *Options)) *SubtaskMeeting {
	return &SubtaskMeeting{base: newBase("subtask", m, newOptions(optFns))}
}

// Run investigates q. On ErrMeetingFailed the Outcome still carries the
// partial transcript and the subtasks processed so far.
func (sm *SubtaskMeeting) Run(runCtx *core.RunContext, q string) (*Outcome, error) {
	ctx, span := telemetry.StartSpan(runCtx.Context, "meeting.subtask", "run_id", runCtx.RunID)
	runCtx = runCtx.WithContext(ctx)

	out, err := sm.run(runCtx, q)

	telemetry.EndSpan(span, err)

	return out, err
}

func (sm *SubtaskMeeting) run(runCtx *core.RunContext, q string) (*Outcome, error) {
	tr := NewTranscript()
	out := &Outcome{Question: q, Transcript: tr}

	tr.Append(question(q))

	team, err := sm.team(runCtx, q, tr)
	if err != nil {
		return out, err
	}

	out.Team = team

	subtasks, err := sm.plan(runCtx, q, team, tr)
	if err != nil {
		return out, err
	}

	runCtx.LogInfo("meeting.start", "meeting", sm.kind, "specialists", len(team.Specialists), "subtasks", len(subtasks))

	for i := range subtasks {
		subtasks[i] = sm.runSubtask(runCtx, q, team, tr, subtasks[i], subtasks[:i], len(subtasks))
	}

	out.Subtasks = subtasks

	final, err := prompt(subtaskFinalPrompt, map[string]any{"Question": q})
	if err != nil {
		return out, err
	}

	answer, err := sm.lead(runCtx, team, tr, Entry{Phase: PhaseFinal}, agent.Task{
		Prompt:  final,
		Context: renderSubtasks(subtasks, maxEntryContext),
	})
	if err != nil {
		return out, err
	}

	if answer == "" {
		answer = strings.TrimSpace(renderSubtasks(subtasks, 0))
	}

	out.Answer = answer

	runCtx.LogInfo("meeting.done", "meeting", sm.kind, "entries", tr.Len())

	return out, nil
}

// plan asks the lead for the subtask list. A backend failure is fatal; an
// unusable plan degrades to a single subtask for the first specialist.
func (sm *SubtaskMeeting) plan(runCtx *core.RunContext, q string, team agent.Team, tr *Transcript) ([]Subtask, error) {
	members := make([]string, len(team.Specialists))
	for i, p := range team.Specialists {
		members[i] = fmt.Sprintf("%s: %s", p.Title, p.Expertise)
	}

	text, err := prompt(planPrompt, map[string]any{
		"Question":    q,
		"MaxSubtasks": sm.opts.MaxSubtasks,
		"Team":        members,
	})
	if err != nil {
		return nil, err
	}

	reply, err := sm.lead(runCtx, team, tr, Entry{Phase: PhasePlan}, agent.Task{Prompt: text})
	if err != nil {
		return nil, err
	}

	subtasks, err := ParsePlan(reply, team)
	if err != nil {
		runCtx.LogWarn("meeting.plan.fallback", "error", err.Error())
		return fallbackPlan(q, team), nil
	}

	if sm.opts.MaxSubtasks > 0 && len(subtasks) > sm.opts.MaxSubtasks {
		subtasks = subtasks[:sm.opts.MaxSubtasks]
	}

	return subtasks, nil
}

// runSubtask drives one subtask to accepted or force_accepted. At most
// 1+RedFlagRetries attempts are made.
func (sm *SubtaskMeeting) runSubtask(runCtx *core.RunContext, q string, team agent.Team, tr *Transcript, st Subtask, prior []Subtask, total int) Subtask {
	defer sm.phase(PhaseExecute, time.Now())

	st.Status = StatusInProgress
	priorResults := renderSubtasks(prior, maxEntryContext)

	var feedback []RedFlag

	for attempt := 1; ; attempt++ {
		st.Attempts = attempt

		runCtx.LogInfo("meeting.subtask.attempt", "subtask", st.Index, "attempt", attempt)

		result, err := sm.execute(runCtx, q, team, tr, st, priorResults, feedback, total)

		var flags []RedFlag
		if err != nil {
			flags = []RedFlag{{Description: "execution failed: " + err.Error(), Severity: SeverityHigh}}
		} else {
			flags = sm.gate(runCtx, q, team, tr, st, result)
		}

		st.Result = result

		if len(flags) == 0 {
			st.Status = StatusAccepted
			st.Flags = nil

			break
		}

		for _, f := range flags {
			metrics.Default().RecordRedFlag(f.Severity)
		}

		st.Flags = flags
		st.Status = StatusFlagged
		feedback = flags

		if attempt > sm.opts.RedFlagRetries {
			st.Status = StatusForceAccepted

			runCtx.LogWarn("meeting.subtask.force_accepted", "subtask", st.Index, "attempts", attempt, "flags", len(flags))

			break
		}

		runCtx.LogInfo("meeting.subtask.flagged", "subtask", st.Index, "attempt", attempt, "flags", len(flags))
	}

	metrics.Default().RecordSubtask(string(st.Status))

	return st
}

// execute runs the assignees. With two assignees the first drafts and the
// second reviews and returns the integrated result.
func (sm *SubtaskMeeting) execute(runCtx *core.RunContext, q string, team agent.Team, tr *Transcript, st Subtask, priorResults string, feedback []RedFlag, total int) (string, error) {
	assignees := make([]agent.Persona, 0, len(st.Assignees))
	for _, title := range st.Assignees {
		if p, ok := team.Find(title); ok {
			assignees = append(assignees, p)
		}
	}

	if len(assignees) == 0 {
		assignees = append(assignees, team.Specialists[0])
	}

	data := map[string]any{
		"Question": q,
		"Subtask":  st,
		"Total":    total,
		"Flags":    feedback,
	}

	text, err := prompt(executePrompt, data)
	if err != nil {
		return "", err
	}

	draft, err := sm.speak(runCtx, tr, assignees[0], Entry{Phase: PhaseExecute, Subtask: st.Index, Attempt: st.Attempts},
		agent.Task{Prompt: text, Context: priorResults})
	if err != nil || len(assignees) == 1 {
		return draft, err
	}

	data["Drafter"] = assignees[0].Title
	data["Draft"] = draft

	text, err = prompt(reviewPrompt, data)
	if err != nil {
		return "", err
	}

	return sm.speak(runCtx, tr, assignees[1], Entry{Phase: PhaseReview, Subtask: st.Index, Attempt: st.Attempts},
		agent.Task{Prompt: text, Context: priorResults})
}

// gate asks the critic for red flags. Malformed gate output and critic
// failures count as no flags.
func (sm *SubtaskMeeting) gate(runCtx *core.RunContext, q string, team agent.Team, tr *Transcript, st Subtask, result string) []RedFlag {
	defer sm.phase(PhaseGate, time.Now())

	text, err := prompt(gatePrompt, map[string]any{"Question": q, "Subtask": st, "Result": result})
	if err != nil {
		runCtx.LogError("meeting.gate.prompt_failed", "subtask", st.Index, "error", err.Error())
		return nil
	}

	reply, err := sm.speak(runCtx, tr, team.Critic, Entry{Phase: PhaseGate, Subtask: st.Index, Attempt: st.Attempts}, agent.Task{Prompt: text})
	if err != nil {
		return nil
	}

	flags, err := ParseRedFlags(reply)
	if err != nil {
		runCtx.LogWarn("meeting.gate.malformed", "subtask", st.Index, "error", err.Error())
		return nil
	}

	return flags
}

// speak runs one non-lead agent and records its entry. Failures are recorded
// and returned to the caller.
func (sm *SubtaskMeeting) speak(runCtx *core.RunContext, tr *Transcript, p agent.Persona, e Entry, task agent.Task) (string, error) {
	e.Speaker = p.Title
	e.Role = p.Role.String()

	specCtx := runCtx

	if sm.opts.SpecialistTimeout > 0 && p.Role == agent.RoleSpecialist {
		ctx, cancel := context.WithTimeout(runCtx.Context, sm.opts.SpecialistTimeout)
		defer cancel()

		specCtx = runCtx.WithContext(ctx)
	}

	res, err := sm.agentFor(p).Run(specCtx, task)
	if err != nil {
		e.Error = err.Error()
		tr.Append(e)

		metrics.Default().RecordSpecialistError()
		runCtx.LogWarn("meeting.speaker.failed", "speaker", p.Title, "phase", string(e.Phase), "subtask", e.Subtask, "error", e.Error)

		return "", err
	}

	answer, err := answerOf(res)
	if err != nil {
		e.Error = err.Error()
		tr.Append(e)

		return "", err
	}

	e.Content = answer
	tr.Append(e)

	return answer, nil
}

package meeting

import (
	"context"
	"time"

	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/internal/telemetry"
	"github.com/hupe1980/agentlab/model"
	"golang.org/x/sync/errgroup"
)

// ParallelMeeting runs a team discussion in rounds. In each round all
// specialists contribute concurrently against the transcript as it stood at
// the start of the round, then the critic reviews and the lead synthesizes.
// A final lead synthesis over the whole transcript is the answer.
type ParallelMeeting struct {
	base
}

// NewParallel creates a parallel meeting backed by m.
func NewParallel(m model.Model, optFns ...func(o *Options)) *ParallelMeeting {
	return &ParallelMeeting{base: newBase("parallel", m, newOptions(optFns))}
}

// Run holds the meeting on question. On ErrMeetingFailed the Outcome still
// carries the partial transcript.
func (pm *ParallelMeeting) Run(runCtx *core.RunContext, q string) (*Outcome, error) {
	ctx, span := telemetry.StartSpan(runCtx.Context, "meeting.parallel", "run_id", runCtx.RunID)
	runCtx = runCtx.WithContext(ctx)

	out, err := pm.run(runCtx, q)

	telemetry.EndSpan(span, err)

	return out, err
}

func (pm *ParallelMeeting) run(runCtx *core.RunContext, q string) (*Outcome, error) {
	tr := NewTranscript()
	out := &Outcome{Question: q, Transcript: tr}

	tr.Append(question(q))

	team, err := pm.team(runCtx, q, tr)
	if err != nil {
		return out, err
	}

	out.Team = team
	rounds := pm.opts.Rounds

	runCtx.LogInfo("meeting.start", "meeting", pm.kind, "specialists", len(team.Specialists), "rounds", rounds)

	opening, err := prompt(openingPrompt, map[string]any{
		"Question":    q,
		"Specialists": team.Titles(),
		"Rounds":      rounds,
	})
	if err != nil {
		return out, err
	}

	if _, err := pm.lead(runCtx, team, tr, Entry{Phase: PhaseOpening}, agent.Task{Prompt: opening}); err != nil {
		return out, err
	}

	for round := 1; round <= rounds; round++ {
		runCtx.LogInfo("meeting.round.start", "meeting", pm.kind, "round", round)

		data := map[string]any{
			"Question": q,
			"Round":    round,
			"Rounds":   rounds,
			"Last":     round == rounds,
		}

		if err := pm.contribute(runCtx, team, tr, data); err != nil {
			return out, err
		}

		if err := pm.critique(runCtx, team, tr, data); err != nil {
			return out, err
		}

		synthesis, err := prompt(synthesisPrompt, data)
		if err != nil {
			return out, err
		}

		if _, err := pm.lead(runCtx, team, tr,
			Entry{Phase: PhaseSynthesis, Round: round},
			agent.Task{Prompt: synthesis, Context: tr.Snapshot(maxEntryContext)},
		); err != nil {
			return out, err
		}
	}

	final, err := prompt(finalPrompt, map[string]any{"Question": q})
	if err != nil {
		return out, err
	}

	answer, err := pm.lead(runCtx, team, tr, Entry{Phase: PhaseFinal}, agent.Task{Prompt: final, Context: tr.Snapshot(maxEntryContext)})
	if err != nil {
		return out, err
	}

	if answer == "" {
		answer = tr.LastContent(PhaseSynthesis)
	}

	out.Answer = answer

	runCtx.LogInfo("meeting.done", "meeting", pm.kind, "entries", tr.Len())

	return out, nil
}

type contribution struct {
	answer string
	err    error
}

// contribute fans the round out to every specialist and appends their
// entries in team order once all have finished.
func (pm *ParallelMeeting) contribute(runCtx *core.RunContext, team agent.Team, tr *Transcript, data map[string]any) error {
	defer pm.phase(PhaseContribute, time.Now())

	task, err := prompt(contributionPrompt, data)
	if err != nil {
		return err
	}

	snapshot := tr.Snapshot(maxEntryContext)
	results := make([]contribution, len(team.Specialists))

	var g errgroup.Group

	g.SetLimit(len(team.Specialists))

	for i, p := range team.Specialists {
		g.Go(func() error {
			specCtx := runCtx

			if pm.opts.SpecialistTimeout > 0 {
				ctx, cancel := context.WithTimeout(runCtx.Context, pm.opts.SpecialistTimeout)
				defer cancel()

				specCtx = runCtx.WithContext(ctx)
			}

			res, err := pm.agentFor(p).Run(specCtx, agent.Task{Prompt: task, Context: snapshot})
			if err != nil {
				results[i] = contribution{err: err}
				return nil // isolated: the round proceeds without this specialist
			}

			answer, err := answerOf(res)
			results[i] = contribution{answer: answer, err: err}

			return nil
		})
	}

	_ = g.Wait()

	round, _ := data["Round"].(int)

	for i, p := range team.Specialists {
		e := Entry{
			Speaker: p.Title,
			Role:    agent.RoleSpecialist.String(),
			Phase:   PhaseContribute,
			Round:   round,
			Content: results[i].answer,
		}

		if results[i].err != nil {
			e.Error = results[i].err.Error()

			metrics.Default().RecordSpecialistError()
			runCtx.LogWarn("meeting.specialist.failed", "specialist", p.Title, "round", round, "error", e.Error)
		}

		tr.Append(e)
	}

	return nil
}

// critique records the critic's review. A critic failure is recorded and
// the round continues.
func (pm *ParallelMeeting) critique(runCtx *core.RunContext, team agent.Team, tr *Transcript, data map[string]any) error {
	defer pm.phase(PhaseCritique, time.Now())

	task, err := prompt(critiquePrompt, data)
	if err != nil {
		return err
	}

	round, _ := data["Round"].(int)
	e := Entry{Speaker: team.Critic.Title, Role: agent.RoleCritic.String(), Phase: PhaseCritique, Round: round}

	res, err := pm.agentFor(team.Critic).Run(runCtx, agent.Task{Prompt: task, Context: tr.Snapshot(maxEntryContext)})
	if err != nil {
		e.Error = err.Error()

		metrics.Default().RecordSpecialistError()
		runCtx.LogWarn("meeting.critic.failed", "round", round, "error", e.Error)
	} else if e.Content, err = answerOf(res); err != nil {
		e.Error = err.Error()
	}

	tr.Append(e)

	return nil
}

package meeting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/testutil"
	"github.com/hupe1980/agentlab/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	leadTitle   = "Principal Investigator"
	criticTitle = "Scientific Critic"
)

func noRetries(o *Options) {
	o.AgentOptions = append(o.AgentOptions, func(ao *agent.Options) {
		ao.BackendRetries = 0
		ao.BackendBackoff = time.Millisecond
	})
}

func twoSpecialists() *agent.Team {
	team := agent.NewTeam(
		agent.NewSpecialist("Immunologist", "immune response", "explain resistance"),
		agent.NewSpecialist("Biostatistician", "clinical statistics", "quantify effects"),
	)

	return &team
}

func withTeam(team *agent.Team) func(o *Options) {
	return func(o *Options) { o.Team = team }
}

func emptyReply() model.ScriptStep {
	return model.ScriptStep{Response: model.Response{Content: core.Content{Role: core.RoleAssistant}}}
}

func phases(entries []Entry) []Phase {
	out := make([]Phase, len(entries))
	for i, e := range entries {
		out[i] = e.Phase
	}

	return out
}

func speakers(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Speaker
	}

	return out
}

func TestTranscript_AppendOnlyCopies(t *testing.T) {
	tr := NewTranscript()
	e := tr.Append(Entry{Speaker: "A", Phase: PhaseOpening, Content: "hello"})
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.Time.IsZero())

	entries := tr.Entries()
	entries[0].Content = "changed"
	assert.Equal(t, "hello", tr.Entries()[0].Content)
	assert.Equal(t, 1, tr.Len())
}

func TestTranscript_RenderAndSnapshot(t *testing.T) {
	tr := NewTranscript()
	tr.Append(question("Why is the sky blue?"))
	tr.Append(Entry{Speaker: "Physicist", Role: "specialist", Phase: PhaseContribute, Round: 1, Content: "Rayleigh scattering."})
	tr.Append(Entry{Speaker: "Chemist", Role: "specialist", Phase: PhaseContribute, Round: 1, Error: "backend down"})
	tr.Append(Entry{Speaker: "Analyst", Phase: PhaseExecute, Subtask: 2, Attempt: 2, Content: strings.Repeat("x", 100)})

	md := tr.Render()
	assert.Contains(t, md, "## Physicist (contribution, round 1)\n\nRayleigh scattering.")
	assert.Contains(t, md, "> **Error:** backend down")
	assert.Contains(t, md, "## Analyst (execution, subtask 2, attempt 2)")
	assert.Contains(t, md, "Why is the sky blue?")

	snap := tr.Snapshot(10)
	assert.NotContains(t, snap, "Why is the sky blue?")
	assert.Contains(t, snap, "[Chemist (contribution, round 1)]\n(no contribution: backend down)")
	assert.Contains(t, snap, "[truncated 90 bytes]")
}

// -------------------- Parallel meeting --------------------

func TestParallelMeeting_TwoSpecialistsTwoRounds(t *testing.T) {
	m := testutil.NewRoutedModel()
	m.Route(leadTitle).Push(
		model.Text("```json\n{\"team\":[{\"title\":\"Immunologist\",\"expertise\":\"immune response\",\"goal\":\"explain\"},{\"title\":\"Biostatistician\",\"expertise\":\"statistics\",\"goal\":\"quantify\"}]}\n```"),
		model.Text("opening"),
		model.Text("synthesis 1"),
		model.Text("synthesis 2"),
		model.Text("final answer"),
	)
	m.Route("Immunologist").Push(model.Text("immuno r1"), model.Text("immuno r2"))
	m.Route("Biostatistician").Push(model.Text("stats r1"), model.Text("stats r2"))
	m.Route(criticTitle).Push(model.Text("critique 1"), model.Text("critique 2"))

	out, err := NewParallel(m, noRetries, func(o *Options) {
		o.Rounds = 2
		o.MaxTeamSize = 2
	}).Run(testutil.NewRunContext(t), "Why do some tumors resist immunotherapy?")
	require.NoError(t, err)

	entries := out.Transcript.Entries()
	require.Len(t, entries, 12)

	assert.Equal(t, []Phase{
		PhaseQuestion, PhaseTeam, PhaseOpening,
		PhaseContribute, PhaseContribute, PhaseCritique, PhaseSynthesis,
		PhaseContribute, PhaseContribute, PhaseCritique, PhaseSynthesis,
		PhaseFinal,
	}, phases(entries))

	assert.Equal(t, []string{
		"User", leadTitle, leadTitle,
		"Immunologist", "Biostatistician", criticTitle, leadTitle,
		"Immunologist", "Biostatistician", criticTitle, leadTitle,
		leadTitle,
	}, speakers(entries))

	assert.Equal(t, "immuno r2", entries[7].Content)
	assert.Equal(t, 2, entries[8].Round)
	assert.Equal(t, "final answer", out.Answer)
	assert.Equal(t, []string{"Immunologist", "Biostatistician"}, out.Team.Titles())
}

func TestParallelMeeting_TranscriptSizeFormula(t *testing.T) {
	for _, rounds := range []int{1, 3} {
		m := testutil.NewRoutedModel()

		out, err := NewParallel(m, noRetries, withTeam(twoSpecialists()), func(o *Options) {
			o.Rounds = rounds
		}).Run(testutil.NewRunContext(t), "q")
		require.NoError(t, err)

		specialists := 2
		assert.Equal(t, 2+1+rounds*(specialists+2)+1, out.Transcript.Len())
	}
}

func TestParallelMeeting_SpecialistsSeeOnlyPriorRounds(t *testing.T) {
	m := testutil.NewRoutedModel()
	m.Route("Immunologist").Push(model.Text("IMMUNO-ROUND-1"), model.Text("IMMUNO-ROUND-2"))
	m.Route("Biostatistician").Push(model.Text("STATS-ROUND-1"), model.Text("STATS-ROUND-2"))

	_, err := NewParallel(m, noRetries, withTeam(twoSpecialists())).Run(testutil.NewRunContext(t), "q")
	require.NoError(t, err)

	reqs := m.Route("Biostatistician").Requests()
	require.Len(t, reqs, 2)

	round1 := model.LastUserText(reqs[0])
	assert.NotContains(t, round1, "IMMUNO-ROUND-1")

	round2 := model.LastUserText(reqs[1])
	assert.Contains(t, round2, "IMMUNO-ROUND-1")
	assert.Contains(t, round2, "STATS-ROUND-1")
	assert.NotContains(t, round2, "IMMUNO-ROUND-2")
}

func TestParallelMeeting_SpecialistFailureIsIsolated(t *testing.T) {
	m := testutil.NewRoutedModel()
	m.Route("Immunologist").WithFallback(func(model.Request) model.ScriptStep {
		return model.Fail(errors.New("connection refused"))
	})
	m.Route(criticTitle).WithFallback(func(model.Request) model.ScriptStep {
		return model.Fail(errors.New("critic down"))
	})
	lead := m.Route(leadTitle)

	out, err := NewParallel(m, noRetries, withTeam(twoSpecialists()), func(o *Options) {
		o.Rounds = 1
	}).Run(testutil.NewRunContext(t), "q")
	require.NoError(t, err)

	entries := out.Transcript.Entries()
	require.Len(t, entries, 2+1+4+1)

	assert.True(t, entries[3].Failed())
	assert.Contains(t, entries[3].Error, "connection refused")
	assert.False(t, entries[4].Failed())
	assert.True(t, entries[5].Failed())
	assert.NotEmpty(t, out.Answer)
	// opening, round synthesis, final
	reqs := lead.Requests()
	require.Len(t, reqs, 3)
	assert.Contains(t, model.LastUserText(reqs[1]), "(no contribution:")
}

func TestParallelMeeting_EmptyLeadReplyIsNotFatal(t *testing.T) {
	m := testutil.NewRoutedModel()
	m.Route(leadTitle).Push(model.Text("opening"), model.Text("ROUND SYNTHESIS"), emptyReply())

	out, err := NewParallel(m, noRetries, withTeam(twoSpecialists()), func(o *Options) {
		o.Rounds = 1
	}).Run(testutil.NewRunContext(t), "q")
	require.NoError(t, err)

	entries := out.Transcript.Entries()
	require.Len(t, entries, 2+1+4+1)

	final := entries[len(entries)-1]
	assert.Equal(t, PhaseFinal, final.Phase)
	assert.True(t, final.Failed())
	assert.Equal(t, "empty reply", final.Error)

	// the latest round synthesis stands in for the missing final answer
	assert.Equal(t, "ROUND SYNTHESIS", out.Answer)
}

func TestParallelMeeting_SpecialistWithoutAnswerIsRecorded(t *testing.T) {
	m := testutil.NewRoutedModel()
	m.Route("Immunologist").WithFallback(func(model.Request) model.ScriptStep {
		return model.Calls(core.FunctionCall{Name: "missing_tool", Arguments: `{}`})
	})

	out, err := NewParallel(m, noRetries, withTeam(twoSpecialists()), func(o *Options) {
		o.Rounds = 1
		o.AgentOptions = append(o.AgentOptions, func(ao *agent.Options) { ao.MaxIterations = 1 })
	}).Run(testutil.NewRunContext(t), "q")
	require.NoError(t, err)

	entries := out.Transcript.Entries()
	require.Len(t, entries, 2+1+4+1)

	assert.Equal(t, "Immunologist", entries[3].Speaker)
	assert.True(t, entries[3].Failed())
	assert.Equal(t, "no answer within the iteration limit", entries[3].Error)
	assert.False(t, entries[4].Failed())
}

func TestParallelMeeting_LeadFailureIsFatal(t *testing.T) {
	m := testutil.NewRoutedModel()
	m.Route(leadTitle).Push(model.Text("opening"), model.Fail(errors.New("overloaded")))

	out, err := NewParallel(m, noRetries, withTeam(twoSpecialists())).Run(testutil.NewRunContext(t), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMeetingFailed)
	assert.ErrorIs(t, err, agent.ErrBackendUnavailable)

	require.NotNil(t, out)
	entries := out.Transcript.Entries()
	last := entries[len(entries)-1]
	assert.Equal(t, PhaseSynthesis, last.Phase)
	assert.True(t, last.Failed())
	assert.Empty(t, out.Answer)
}

type slowModel struct {
	model.Model
	title string
}

func (s slowModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	if !strings.Contains(req.Instructions, s.title) {
		return s.Model.Generate(ctx, req)
	}

	respCh := make(chan model.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()

	return respCh, errCh
}

func TestParallelMeeting_SpecialistTimeout(t *testing.T) {
	m := slowModel{Model: testutil.NewRoutedModel(), title: "Biostatistician"}

	start := time.Now()
	out, err := NewParallel(m, noRetries, withTeam(twoSpecialists()), func(o *Options) {
		o.Rounds = 1
		o.SpecialistTimeout = 20 * time.Millisecond
	}).Run(testutil.NewRunContext(t), "q")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	entries := out.Transcript.Entries()
	assert.False(t, entries[3].Failed())
	assert.True(t, entries[4].Failed())
	assert.Contains(t, entries[4].Error, "deadline exceeded")
}

func TestParallelMeeting_InvalidMaxTeamSize(t *testing.T) {
	_, err := NewParallel(testutil.NewRoutedModel(), func(o *Options) {
		o.MaxTeamSize = 1
	}).Run(testutil.NewRunContext(t), "q")

	assert.ErrorIs(t, err, ErrMeetingFailed)
	assert.ErrorIs(t, err, agent.ErrInvalidTeamSize)
}

func TestOutcome_Report(t *testing.T) {
	tr := NewTranscript()
	tr.Append(question("q?"))

	out := &Outcome{
		Question:   "q?",
		Answer:     "42",
		Transcript: tr,
		Subtasks: []Subtask{{
			Index: 1, Description: "compute", Assignees: []string{"Analyst"},
			Status: StatusForceAccepted, Attempts: 3, Result: "about 40",
			Flags: []RedFlag{{Description: "no error bars", Severity: SeverityHigh}},
		}},
	}

	report := out.Report()
	assert.Contains(t, report, "# q?\n\n## Answer\n\n42")
	assert.Contains(t, report, "Status: force_accepted after 3 attempt(s).")
	assert.Contains(t, report, "- [high] no error bars")
	assert.Contains(t, report, "## Transcript")
}

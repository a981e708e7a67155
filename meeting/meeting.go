package meeting

import (
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/metrics"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/model"
)

// ErrMeetingFailed is returned when a lead call the meeting cannot do
// without (opening, synthesis, planning) fails. The Outcome returned with it
// carries the partial transcript.
var ErrMeetingFailed = errors.New("meeting failed")

var (
	errNoAnswer   = errors.New("no answer within the iteration limit")
	errEmptyReply = errors.New("empty reply")
)

// Defaults applied by the meeting constructors.
const (
	DefaultRounds         = 2
	DefaultMaxTeamSize    = 3
	DefaultRedFlagRetries = 2
	DefaultMaxSubtasks    = 6

	// maxEntryContext caps each transcript entry when it is fed back as context.
	maxEntryContext = 6 << 10
)

// Options configures a meeting.
type Options struct {
	// Rounds is the number of discussion rounds of a parallel meeting.
	Rounds int
	// MaxTeamSize caps the number of specialists. Must be at least 2.
	MaxTeamSize int
	// RedFlagRetries is the number of retries a flagged subtask gets.
	RedFlagRetries int
	// MaxSubtasks caps the plan of a subtask meeting.
	MaxSubtasks int
	// SpecialistTimeout bounds one specialist's loop. Zero waits indefinitely.
	SpecialistTimeout time.Duration
	// Team skips team design when set.
	Team *agent.Team
	// AgentOptions are applied to every agent the meeting creates.
	AgentOptions []func(o *agent.Options)
}

func newOptions(optFns []func(o *Options)) Options {
	opts := Options{
		Rounds:         DefaultRounds,
		MaxTeamSize:    DefaultMaxTeamSize,
		RedFlagRetries: DefaultRedFlagRetries,
		MaxSubtasks:    DefaultMaxSubtasks,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Rounds < 1 {
		opts.Rounds = 1
	}

	if opts.RedFlagRetries < 0 {
		opts.RedFlagRetries = 0
	}

	return opts
}

// Outcome is what a meeting returns to its caller.
type Outcome struct {
	Question   string      `json:"question"`
	Team       agent.Team  `json:"team"`
	Answer     string      `json:"answer"`
	Transcript *Transcript `json:"-"`
	// Subtasks is set by subtask meetings only.
	Subtasks []Subtask `json:"subtasks,omitempty"`
}

// Report renders the outcome as Markdown: answer, subtask results with any
// unresolved flags, then the transcript.
func (o *Outcome) Report() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n## Answer\n\n%s\n", o.Question, strings.TrimSpace(o.Answer))

	if len(o.Subtasks) > 0 {
		b.WriteString("\n## Subtasks\n")
		b.WriteString(renderSubtasks(o.Subtasks, 0))
	}

	if o.Transcript != nil {
		b.WriteString("\n")
		b.WriteString(strings.Replace(o.Transcript.Render(), "# Meeting transcript", "## Transcript", 1))
	}

	return b.String()
}

func renderSubtasks(subtasks []Subtask, maxResult int) string {
	var b strings.Builder

	for _, s := range subtasks {
		fmt.Fprintf(&b, "\n### %d. %s\n\n", s.Index, s.Description)
		fmt.Fprintf(&b, "Assignees: %s. Status: %s after %d attempt(s).\n\n", strings.Join(s.Assignees, ", "), s.Status, s.Attempts)
		b.WriteString(util.Truncate(strings.TrimSpace(s.Result), maxResult))
		b.WriteString("\n")

		if len(s.Flags) > 0 {
			b.WriteString("\nUnresolved red flags:\n")

			for _, f := range s.Flags {
				fmt.Fprintf(&b, "- [%s] %s\n", f.Severity, f.Description)
			}
		}
	}

	return b.String()
}

// base holds what both meeting kinds share.
type base struct {
	kind     string
	model    model.Model
	designer *agent.TeamDesigner
	opts     Options
}

func newBase(kind string, m model.Model, opts Options) base {
	return base{
		kind:     kind,
		model:    m,
		designer: agent.NewTeamDesigner(m, opts.AgentOptions...),
		opts:     opts,
	}
}

func (b *base) agentFor(p agent.Persona) *agent.Agent {
	return agent.New(p, b.model, b.opts.AgentOptions...)
}

func (b *base) team(runCtx *core.RunContext, question string, tr *Transcript) (agent.Team, error) {
	defer b.phase(PhaseTeam, time.Now())

	var team agent.Team

	if b.opts.Team != nil {
		team = *b.opts.Team
		if len(team.Specialists) == 0 {
			return agent.Team{}, fmt.Errorf("%w: preset team has no specialists", ErrMeetingFailed)
		}
	} else {
		designed, err := b.designer.Design(runCtx, question, b.opts.MaxTeamSize)
		if err != nil {
			return agent.Team{}, fmt.Errorf("%w: %w", ErrMeetingFailed, err)
		}

		team = designed
	}

	tr.Append(Entry{
		Speaker: team.Lead.Title,
		Role:    agent.RoleLead.String(),
		Phase:   PhaseTeam,
		Content: renderTeam(team),
	})

	return team, nil
}

// lead runs one lead call and records it. A backend failure is fatal; a
// reply without an answer is recorded as such and yields "".
func (b *base) lead(runCtx *core.RunContext, team agent.Team, tr *Transcript, e Entry, task agent.Task) (string, error) {
	defer b.phase(e.Phase, time.Now())

	res, err := b.agentFor(team.Lead).Run(runCtx, task)

	e.Speaker = team.Lead.Title
	e.Role = agent.RoleLead.String()

	if err != nil {
		e.Error = err.Error()
		tr.Append(e)
		runCtx.LogError("meeting.lead.failed", "meeting", b.kind, "phase", string(e.Phase), "error", err.Error())

		return "", fmt.Errorf("%w: %s: %w", ErrMeetingFailed, e.Phase, err)
	}

	answer, err := answerOf(res)
	if err != nil {
		e.Error = err.Error()
		tr.Append(e)
		runCtx.LogWarn("meeting.lead.no_answer", "meeting", b.kind, "phase", string(e.Phase), "error", e.Error)

		return "", nil
	}

	e.Content = answer
	tr.Append(e)

	return answer, nil
}

// answerOf returns the answer of a finished loop, or an error naming why
// there is none.
func answerOf(res *agent.Result) (string, error) {
	if strings.TrimSpace(res.Answer) != "" {
		return res.Answer, nil
	}

	if res.Status == agent.StatusIterationLimit {
		return "", errNoAnswer
	}

	return "", errEmptyReply
}

func (b *base) phase(p Phase, start time.Time) {
	metrics.Default().RecordPhase(b.kind, string(p), time.Since(start))
}

func renderTeam(team agent.Team) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Lead: %s\nCritic: %s\nSpecialists:\n", team.Lead.Title, team.Critic.Title)

	for _, p := range team.Specialists {
		fmt.Fprintf(&b, "- %s: %s\n", p.Title, p.Expertise)
	}

	return strings.TrimRight(b.String(), "\n")
}

func question(q string) Entry {
	return Entry{Speaker: "User", Role: "user", Phase: PhaseQuestion, Content: q}
}

func prompt(tmpl *template.Template, data any) (string, error) {
	text, err := util.Execute(tmpl, data)
	if err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}

	return strings.TrimSpace(text), nil
}

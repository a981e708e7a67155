package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/util"
	"github.com/hupe1980/agentlab/model"
)

// ErrInvalidTeamSize is returned for a maximum team size below two.
var ErrInvalidTeamSize = errors.New("max team size must be at least 2")

// MinTeamSize is the smallest number of specialists a meeting runs with.
const MinTeamSize = 2

var teamDesignPrompt = util.MustParse("team_design", `
Assemble the team of specialists best suited to answer this research question:

{{.Question}}

Choose between {{.Min}} and {{.Max}} specialists with distinct, complementary
expertise. You and a scientific critic are already on the team; do not
include either. Reply with a single json block of this exact shape:

`+"```json"+`
{"team": [{"title": "...", "expertise": "...", "goal": "...", "responsibilities": ["..."]}]}
`+"```"+`
`)

type teamSpec struct {
	Team []struct {
		Title            string   `json:"title"`
		Expertise        string   `json:"expertise"`
		Goal             string   `json:"goal"`
		Responsibilities []string `json:"responsibilities"`
	} `json:"team"`
}

// TeamDesigner asks the lead persona which specialists a question needs.
type TeamDesigner struct {
	agent *Agent
}

// NewTeamDesigner creates a designer backed by m. Team design does not use
// tools; any Executor in the options is ignored.
func NewTeamDesigner(m model.Model, optFns ...func(o *Options)) *TeamDesigner {
	fns := append(append([]func(o *Options){}, optFns...), func(o *Options) {
		o.Executor = nil
	})

	return &TeamDesigner{agent: New(Lead(), m, fns...)}
}

// Design returns a team of 2..maxTeamSize specialists for question plus the
// fixed lead and critic. A backend failure or an unusable reply falls back
// to DefaultTeam truncated to maxTeamSize; the only error is a config error.
func (d *TeamDesigner) Design(runCtx *core.RunContext, question string, maxTeamSize int) (Team, error) {
	if maxTeamSize < MinTeamSize {
		return Team{}, fmt.Errorf("%w: got %d", ErrInvalidTeamSize, maxTeamSize)
	}

	prompt, err := util.Execute(teamDesignPrompt, map[string]any{
		"Question": question,
		"Min":      MinTeamSize,
		"Max":      maxTeamSize,
	})
	if err != nil {
		return Team{}, fmt.Errorf("render team prompt: %w", err)
	}

	res, err := d.agent.Run(runCtx, Task{Prompt: prompt})
	if err != nil {
		runCtx.LogWarn("agent.team.fallback", "reason", "backend", "error", err.Error())
		return defaultTeam(maxTeamSize), nil
	}

	specialists, err := ParseTeam(res.Answer)
	if err != nil {
		runCtx.LogWarn("agent.team.fallback", "reason", "parse", "error", err.Error())
		return defaultTeam(maxTeamSize), nil
	}

	if len(specialists) > maxTeamSize {
		specialists = specialists[:maxTeamSize]
	}

	runCtx.LogInfo("agent.team.designed", "specialists", len(specialists))

	return NewTeam(specialists...), nil
}

// ParseTeam extracts and strictly validates the specialist list from a lead
// reply: every member needs a title, expertise and goal, titles must be
// unique and must not clash with the lead or critic, and at least
// MinTeamSize members are required.
func ParseTeam(text string) ([]Persona, error) {
	var spec teamSpec
	if err := util.DecodeJSONBlock(text, &spec); err != nil {
		return nil, err
	}

	reserved := map[string]bool{
		strings.ToLower(Lead().Title):   true,
		strings.ToLower(Critic().Title): true,
	}
	seen := map[string]bool{}

	specialists := make([]Persona, 0, len(spec.Team))

	for i, m := range spec.Team {
		p := NewSpecialist(m.Title, m.Expertise, m.Goal, m.Responsibilities...)
		if p.Title == "" || p.Expertise == "" || p.Goal == "" {
			return nil, fmt.Errorf("team member %d: title, expertise and goal are required", i+1)
		}

		key := strings.ToLower(p.Title)
		if reserved[key] {
			return nil, fmt.Errorf("team member %d: %q is a reserved title", i+1, p.Title)
		}

		if seen[key] {
			return nil, fmt.Errorf("team member %d: duplicate title %q", i+1, p.Title)
		}

		seen[key] = true

		specialists = append(specialists, p)
	}

	if len(specialists) < MinTeamSize {
		return nil, fmt.Errorf("team needs at least %d specialists, got %d", MinTeamSize, len(specialists))
	}

	return specialists, nil
}

func defaultTeam(maxTeamSize int) Team {
	specialists := DefaultTeam()
	if len(specialists) > maxTeamSize {
		specialists = specialists[:maxTeamSize]
	}

	return NewTeam(specialists...)
}

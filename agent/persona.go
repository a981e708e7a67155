package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/util"
)

// Role is the closed set of parts a persona can play in a meeting.
type Role int

const (
	// RoleSpecialist contributes domain expertise and executes subtasks.
	RoleSpecialist Role = iota
	// RoleLead opens meetings, synthesizes rounds and writes the final answer.
	RoleLead
	// RoleCritic reviews contributions and names their flaws.
	RoleCritic
)

func (r Role) String() string {
	switch r {
	case RoleLead:
		return "lead"
	case RoleCritic:
		return "critic"
	case RoleSpecialist:
		return "specialist"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Persona is an immutable description of one agent's identity. The system
// instruction sent to the backend is derived from it.
type Persona struct {
	Role             Role     `json:"role"`
	Title            string   `json:"title"`
	Expertise        string   `json:"expertise"`
	Goal             string   `json:"goal"`
	Responsibilities []string `json:"responsibilities,omitempty"`
}

// Instruction renders the persona's system instruction.
func (p Persona) Instruction() string {
	tmpl := specialistInstruction

	switch p.Role {
	case RoleLead:
		tmpl = leadInstruction
	case RoleCritic:
		tmpl = criticInstruction
	}

	text, err := util.Execute(tmpl, p)
	if err != nil {
		return fmt.Sprintf("You are the %s. Expertise: %s. Goal: %s.", p.Title, p.Expertise, p.Goal)
	}

	return strings.TrimSpace(text)
}

// Briefing supplies run-specific text appended to every persona's
// instruction, such as the workspace and datasets the tools can reach.
type Briefing func(rc *core.RunContext) (string, error)

// StaticBriefing returns a Briefing that always yields text.
func StaticBriefing(text string) Briefing {
	return func(*core.RunContext) (string, error) { return text, nil }
}

// InstructionFor renders the persona instruction followed by the run
// briefing, if any. A nil briefing yields the persona instruction alone.
func (p Persona) InstructionFor(rc *core.RunContext, b Briefing) (string, error) {
	base := p.Instruction()
	if b == nil {
		return base, nil
	}

	extra, err := b(rc)
	if err != nil {
		return "", fmt.Errorf("briefing for %s: %w", p.Title, err)
	}

	if extra = strings.TrimSpace(extra); extra != "" {
		return base + "\n\n" + extra, nil
	}

	return base, nil
}

// Lead returns the principal investigator persona.
func Lead() Persona {
	return Persona{
		Role:      RoleLead,
		Title:     "Principal Investigator",
		Expertise: "leading interdisciplinary research teams and turning open questions into concrete, testable work",
		Goal:      "produce a well-supported, honest answer to the research question",
		Responsibilities: []string{
			"frame the question and decide what the team should examine",
			"integrate contributions into a coherent position",
			"resolve disagreements between team members",
			"state clearly what remains uncertain",
		},
	}
}

// Critic returns the scientific critic persona. The critic names problems
// and never proposes how to fix them.
func Critic() Persona {
	return Persona{
		Role:      RoleCritic,
		Title:     "Scientific Critic",
		Expertise: "methodology, statistics and the detection of unsupported claims",
		Goal:      "find every flaw that would make the team's answer wrong, incomplete or overconfident",
		Responsibilities: []string{
			"check that claims are backed by evidence or computation",
			"point out logical gaps, hidden assumptions and errors",
			"flag answers that ignore part of the question",
		},
	}
}

// NewSpecialist creates a specialist persona.
func NewSpecialist(title, expertise, goal string, responsibilities ...string) Persona {
	return Persona{
		Role:             RoleSpecialist,
		Title:            strings.TrimSpace(title),
		Expertise:        strings.TrimSpace(expertise),
		Goal:             strings.TrimSpace(goal),
		Responsibilities: responsibilities,
	}
}

// DefaultTeam returns the fallback specialists used when team design fails.
func DefaultTeam() []Persona {
	return []Persona{
		NewSpecialist(
			"Generalist",
			"broad scientific reasoning across disciplines",
			"make sure the answer addresses the whole question",
			"connect findings from different fields",
			"spot parts of the question nobody has covered",
		),
		NewSpecialist(
			"Domain Scientist",
			"the core scientific domain of the question",
			"ground the answer in established domain knowledge",
			"explain the relevant mechanisms and prior results",
			"judge which hypotheses are plausible",
		),
		NewSpecialist(
			"Data Analyst",
			"quantitative analysis, statistics and computation",
			"back claims with data, calculations and code",
			"query datasets and run analyses with the available tools",
			"report numbers with their uncertainty",
		),
	}
}

// Team is a resolved meeting roster: the fixed lead and critic plus the
// specialists chosen for the question.
type Team struct {
	Lead        Persona   `json:"lead"`
	Critic      Persona   `json:"critic"`
	Specialists []Persona `json:"specialists"`
}

// NewTeam assembles a team around the fixed lead and critic.
func NewTeam(specialists ...Persona) Team {
	return Team{Lead: Lead(), Critic: Critic(), Specialists: specialists}
}

// Find returns the specialist whose title matches (case-insensitively).
func (t Team) Find(title string) (Persona, bool) {
	title = strings.TrimSpace(title)
	for _, p := range t.Specialists {
		if strings.EqualFold(p.Title, title) {
			return p, true
		}
	}

	return Persona{}, false
}

// Titles returns the specialist titles in team order.
func (t Team) Titles() []string {
	titles := make([]string, len(t.Specialists))
	for i, p := range t.Specialists {
		titles[i] = p.Title
	}

	return titles
}

package meeting

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/agentlab/agent"
	"github.com/hupe1980/agentlab/internal/util"
)

// SubtaskStatus tracks a subtask through execution and quality gating.
type SubtaskStatus string

// Subtask statuses.
const (
	StatusPending       SubtaskStatus = "pending"
	StatusInProgress    SubtaskStatus = "in_progress"
	StatusFlagged       SubtaskStatus = "flagged"
	StatusAccepted      SubtaskStatus = "accepted"
	StatusForceAccepted SubtaskStatus = "force_accepted"
)

// Red flag severities. Unknown severities from the critic map to SeverityMedium.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// RedFlag is a quality problem raised by the critic against a subtask result.
type RedFlag struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// Subtask is one step of a research plan. A subtask is accepted only with
// no unresolved flags; a force-accepted subtask keeps the flags that
// remained when its retry budget ran out.
type Subtask struct {
	Index          int           `json:"index"`
	Description    string        `json:"description"`
	Assignees      []string      `json:"assignees"`
	ExpectedOutput string        `json:"expected_output,omitempty"`
	Status         SubtaskStatus `json:"status"`
	Attempts       int           `json:"attempts"`
	Result         string        `json:"result"`
	Flags          []RedFlag     `json:"flags,omitempty"`
}

// Done reports whether the subtask reached a terminal status.
func (s Subtask) Done() bool {
	return s.Status == StatusAccepted || s.Status == StatusForceAccepted
}

type planSpec struct {
	Subtasks []struct {
		Description    string   `json:"description"`
		Assignees      []string `json:"assignees"`
		ExpectedOutput string   `json:"expected_output"`
	} `json:"subtasks"`
}

// ParsePlan extracts the subtask list from a lead reply. Every subtask needs
// a description. Assignee titles are matched case-insensitively against the
// team; unknown titles resolve to the first specialist, duplicates are
// dropped and at most two assignees are kept.
func ParsePlan(text string, team agent.Team) ([]Subtask, error) {
	if len(team.Specialists) == 0 {
		return nil, errors.New("team has no specialists")
	}

	var spec planSpec
	if err := util.DecodeJSONBlock(text, &spec); err != nil {
		return nil, err
	}

	if len(spec.Subtasks) == 0 {
		return nil, errors.New("plan has no subtasks")
	}

	subtasks := make([]Subtask, 0, len(spec.Subtasks))

	for i, s := range spec.Subtasks {
		desc := strings.TrimSpace(s.Description)
		if desc == "" {
			return nil, fmt.Errorf("subtask %d: description is required", i+1)
		}

		subtasks = append(subtasks, Subtask{
			Index:          i + 1,
			Description:    desc,
			Assignees:      resolveAssignees(s.Assignees, team),
			ExpectedOutput: strings.TrimSpace(s.ExpectedOutput),
			Status:         StatusPending,
		})
	}

	return subtasks, nil
}

// fallbackPlan is the single-subtask plan used when the lead's plan is unusable.
func fallbackPlan(question string, team agent.Team) []Subtask {
	return []Subtask{{
		Index:          1,
		Description:    question,
		Assignees:      []string{team.Specialists[0].Title},
		ExpectedOutput: "A complete, well-supported answer to the question.",
		Status:         StatusPending,
	}}
}

func resolveAssignees(titles []string, team agent.Team) []string {
	first := team.Specialists[0].Title
	seen := map[string]bool{}

	var out []string

	for _, title := range titles {
		resolved := first
		if p, ok := team.Find(title); ok {
			resolved = p.Title
		}

		if seen[resolved] {
			continue
		}

		seen[resolved] = true

		out = append(out, resolved)
		if len(out) == 2 {
			break
		}
	}

	if len(out) == 0 {
		out = []string{first}
	}

	return out
}

type redFlagSpec struct {
	RedFlags []RedFlag `json:"red_flags"`
}

// ParseRedFlags extracts the critic's red flags. Flags without a description
// are dropped and severities are normalized. An error means the reply held
// no usable JSON; callers treat that as "no flags".
func ParseRedFlags(text string) ([]RedFlag, error) {
	var spec redFlagSpec
	if err := util.DecodeJSONBlock(text, &spec); err != nil {
		return nil, err
	}

	flags := make([]RedFlag, 0, len(spec.RedFlags))

	for _, f := range spec.RedFlags {
		desc := strings.TrimSpace(f.Description)
		if desc == "" {
			continue
		}

		flags = append(flags, RedFlag{Description: desc, Severity: normalizeSeverity(f.Severity)})
	}

	return flags, nil
}

func normalizeSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SeverityLow, "minor":
		return SeverityLow
	case SeverityHigh, "critical", "major", "severe":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

package agent

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/hupe1980/agentlab/core"
	"github.com/hupe1980/agentlab/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersona_Instructions(t *testing.T) {
	lead := Lead().Instruction()
	assert.Contains(t, lead, "You are the Principal Investigator")
	assert.Contains(t, lead, "- integrate contributions into a coherent position")

	critic := Critic().Instruction()
	assert.Contains(t, critic, "Identify flaws only")
	assert.Contains(t, critic, "Never propose solutions")

	spec := NewSpecialist(" Immunologist ", "T cell biology", "explain the immune response", "interpret assay results").Instruction()
	assert.Contains(t, spec, "You are a Immunologist on a research team")
	assert.Contains(t, spec, "Your expertise: T cell biology.")
	assert.Contains(t, spec, "- interpret assay results")
	assert.NotContains(t, spec, "&#39;")
}

func TestPersona_NoResponsibilities(t *testing.T) {
	text := NewSpecialist("Chemist", "organic chemistry", "identify compounds").Instruction()
	assert.NotContains(t, text, "Your responsibilities")
}

func TestRole(t *testing.T) {
	assert.Equal(t, "lead", RoleLead.String())
	assert.Equal(t, "critic", RoleCritic.String())
	assert.Equal(t, "specialist", RoleSpecialist.String())

	b, err := json.Marshal(Critic())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"role":"critic"`)
}

func TestDefaultTeam(t *testing.T) {
	team := DefaultTeam()
	require.Len(t, team, 3)
	assert.Equal(t, []string{"Generalist", "Domain Scientist", "Data Analyst"}, NewTeam(team...).Titles())

	for _, p := range team {
		assert.Equal(t, RoleSpecialist, p.Role)
	}
}

func TestTeam_Find(t *testing.T) {
	team := NewTeam(DefaultTeam()...)

	p, ok := team.Find("  data analyst ")
	require.True(t, ok)
	assert.Equal(t, "Data Analyst", p.Title)

	_, ok = team.Find("Astronomer")
	assert.False(t, ok)

	assert.Equal(t, RoleLead, team.Lead.Role)
	assert.Equal(t, RoleCritic, team.Critic.Role)
}

func TestPersona_InstructionFor(t *testing.T) {
	rc := testutil.NewRunContext(t)
	spec := NewSpecialist("Chemist", "organic chemistry", "identify compounds")

	text, err := spec.InstructionFor(rc, nil)
	require.NoError(t, err)
	assert.Equal(t, spec.Instruction(), text)

	text, err = spec.InstructionFor(rc, StaticBriefing("  \n "))
	require.NoError(t, err)
	assert.Equal(t, spec.Instruction(), text)

	text, err = spec.InstructionFor(rc, StaticBriefing("Datasets: assays.csv"))
	require.NoError(t, err)
	assert.Equal(t, spec.Instruction()+"\n\nDatasets: assays.csv", text)

	text, err = spec.InstructionFor(rc, func(rc *core.RunContext) (string, error) {
		return "Run: " + rc.RunID, nil
	})
	require.NoError(t, err)
	assert.Contains(t, text, "Run: test-run")

	boom := errors.New("boom")
	_, err = spec.InstructionFor(rc, func(*core.RunContext) (string, error) { return "", boom })
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "briefing for Chemist")
}

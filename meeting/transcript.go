package meeting

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/agentlab/internal/util"
)

// Phase labels the meeting step that produced a transcript entry.
type Phase string

// Transcript phases.
const (
	PhaseQuestion   Phase = "question"
	PhaseTeam       Phase = "team"
	PhaseOpening    Phase = "opening"
	PhaseContribute Phase = "contribution"
	PhaseCritique   Phase = "critique"
	PhaseSynthesis  Phase = "synthesis"
	PhasePlan       Phase = "plan"
	PhaseExecute    Phase = "execution"
	PhaseReview     Phase = "review"
	PhaseGate       Phase = "quality_gate"
	PhaseFinal      Phase = "final_synthesis"
)

// Entry is one contribution to a meeting. Error is set when the speaker
// failed; Content then holds a short note instead of an answer.
type Entry struct {
	ID      string    `json:"id"`
	Speaker string    `json:"speaker"`
	Role    string    `json:"role"`
	Phase   Phase     `json:"phase"`
	Round   int       `json:"round,omitempty"`
	Subtask int       `json:"subtask,omitempty"`
	Attempt int       `json:"attempt,omitempty"`
	Content string    `json:"content"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// Failed reports whether the speaker failed to contribute.
func (e Entry) Failed() bool { return e.Error != "" }

func (e Entry) heading() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s (%s", e.Speaker, strings.ReplaceAll(string(e.Phase), "_", " "))

	if e.Round > 0 {
		fmt.Fprintf(&b, ", round %d", e.Round)
	}

	if e.Subtask > 0 {
		fmt.Fprintf(&b, ", subtask %d", e.Subtask)
	}

	if e.Attempt > 1 {
		fmt.Fprintf(&b, ", attempt %d", e.Attempt)
	}

	b.WriteString(")")

	return b.String()
}

// Transcript is the append-only record of a meeting. Entries are never
// modified or removed once appended.
type Transcript struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript { return &Transcript{} }

// Append adds e, assigning its ID and timestamp, and returns the stored entry.
func (t *Transcript) Append(e Entry) Entry {
	e.ID = uuid.NewString()
	e.Time = time.Now().UTC()

	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()

	return e
}

// Entries returns a copy of all entries in order.
func (t *Transcript) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Entry, len(t.entries))
	copy(out, t.entries)

	return out
}

// LastContent returns the content of the latest successful entry in phase,
// or "" when there is none.
func (t *Transcript) LastContent(phase Phase) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := len(t.entries) - 1; i >= 0; i-- {
		if e := t.entries[i]; e.Phase == phase && !e.Failed() && strings.TrimSpace(e.Content) != "" {
			return e.Content
		}
	}

	return ""
}

// Len returns the number of entries.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.entries)
}

// Snapshot freezes the transcript as prompt context. Each entry is capped at
// maxEntryBytes (0 disables the cap).
func (t *Transcript) Snapshot(maxEntryBytes int) string {
	var b strings.Builder

	for _, e := range t.Entries() {
		if e.Phase == PhaseQuestion {
			continue // every prompt restates the question
		}

		fmt.Fprintf(&b, "[%s]\n", e.heading())

		if e.Failed() {
			fmt.Fprintf(&b, "(no contribution: %s)\n\n", e.Error)
			continue
		}

		b.WriteString(util.Truncate(strings.TrimSpace(e.Content), maxEntryBytes))
		b.WriteString("\n\n")
	}

	return strings.TrimSpace(b.String())
}

// Render formats the transcript as Markdown.
func (t *Transcript) Render() string {
	var b strings.Builder

	b.WriteString("# Meeting transcript\n")

	for _, e := range t.Entries() {
		fmt.Fprintf(&b, "\n## %s\n\n", e.heading())

		if e.Failed() {
			fmt.Fprintf(&b, "> **Error:** %s\n", e.Error)
			continue
		}

		b.WriteString(strings.TrimSpace(e.Content))
		b.WriteString("\n")
	}

	return b.String()
}

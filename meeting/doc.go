// Package meeting composes agents into structured research meetings.
//
// Two orchestrators are provided:
//
//   - ParallelMeeting: team design, a lead opening, R rounds of concurrent
//     specialist contributions followed by a critic review and a lead
//     synthesis, and a final lead synthesis.
//   - SubtaskMeeting: team design, a lead plan of sequential subtasks, each
//     executed by one or two specialists and checked by the critic's quality
//     gate (bounded retries, then force-accept), and a final synthesis.
//
// Both record every contribution in an append-only Transcript. Specialist
// and critic failures are recorded and isolated; a failed lead call ends the
// meeting with ErrMeetingFailed and the partial transcript.
package meeting

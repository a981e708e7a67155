// Package notebook contains the shared research notebook, an implementation
// of core.NoteStore. Agents of one run record short findings (save_note) and
// look up what teammates already found (search_notes); runs never see each
// other's notes.
package notebook

package domain

import "time"

// NoteType tags who wrote a note. It uses the role vocabulary.
type NoteType string

const (
	NoteTypeCustomer NoteType = "customer"
	NoteTypeAgent    NoteType = "agent"
	NoteTypeAdmin    NoteType = "admin"
)

// NoteTimeLayout is the wire format for Note.AddedAt.
const NoteTimeLayout = "2006-01-02T15:04Z"

// NoteAuthor snapshots the author at append time.
type NoteAuthor struct {
	ID    string
	Name  string
	Email string
	Role  Role
}

// Note is an immutable entry in a ticket's note log. An empty NoteType marks a
// legacy row written before the field existed.
type Note struct {
	ID       string
	Text     string
	AddedBy  NoteAuthor
	AddedAt  time.Time
	NoteType NoteType
}

// NoteTypeForRole maps the author's active role onto a note type.
func NoteTypeForRole(role Role) NoteType {
	switch role {
	case RoleAdmin:
		return NoteTypeAdmin
	case RoleAgent:
		return NoteTypeAgent
	default:
		return NoteTypeCustomer
	}
}

// IsLegacy reports whether the note predates note types.
func (n Note) IsLegacy() bool {
	return n.NoteType == ""
}

// EffectiveType is the type to present for n; legacy notes read as customer.
func (n Note) EffectiveType() NoteType {
	if n.IsLegacy() {
		return NoteTypeCustomer
	}
	return n.NoteType
}

// BackfillNoteTypes tags every legacy note as customer and returns how many
// were rewritten.
func BackfillNoteTypes(notes []Note) int {
	changed := 0
	for i := range notes {
		if notes[i].IsLegacy() {
			notes[i].NoteType = NoteTypeCustomer
			changed++
		}
	}
	return changed
}

// TruncateToMinute zeroes seconds and sub-seconds, in UTC.
func TruncateToMinute(t time.Time) time.Time {
	return t.UTC().Truncate(time.Minute)
}

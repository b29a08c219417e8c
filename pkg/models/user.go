package models

import "time"

// UserRecord is a contact/profile record keyed uniquely by phone number.
// Records are created once and only ever partially updated afterwards; the
// conversational core never deletes them.
type UserRecord struct {
	Phone     string    `json:"phone"`
	Firstname string    `json:"firstname,omitempty"`
	Lastname  string    `json:"lastname,omitempty"`
	Email     string    `json:"email,omitempty"`
	Input     string    `json:"input,omitempty"` // free text the user supplied alongside their details
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPatch is a partial update to a UserRecord. Nil fields are left
// untouched when the patch is applied; a field is only replaced when the
// caller supplied it.
type UserPatch struct {
	Firstname *string
	Lastname  *string
	Email     *string
	Input     *string
}

// IsZero reports whether the patch carries no changes.
func (p UserPatch) IsZero() bool {
	return p.Firstname == nil && p.Lastname == nil && p.Email == nil && p.Input == nil
}

// Apply copies the patch's populated fields onto the record.
func (p UserPatch) Apply(rec *UserRecord) {
	if p.Firstname != nil {
		rec.Firstname = *p.Firstname
	}
	if p.Lastname != nil {
		rec.Lastname = *p.Lastname
	}
	if p.Email != nil {
		rec.Email = *p.Email
	}
	if p.Input != nil {
		rec.Input = *p.Input
	}
}

package domain

import "time"

// UTM holds the campaign parameters attached to a new remote session.
type UTM struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
}

// SessionUpdate is a partial update of a remote session record.
// Nil fields are left untouched.
type SessionUpdate struct {
	Answers     map[string]any `json:"answers,omitempty"`
	CurrentStep *int           `json:"current_step,omitempty"`
	Email       *string        `json:"email,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// IsZero reports whether the update carries nothing.
func (u SessionUpdate) IsZero() bool {
	return u.Answers == nil && u.CurrentStep == nil && u.Email == nil && u.CompletedAt == nil
}

// RemoteSession is the mirror record as kept by a session store.
type RemoteSession struct {
	ID          string         `json:"id"`
	UTM         UTM            `json:"utm"`
	Answers     map[string]any `json:"answers"`
	CurrentStep int            `json:"current_step"`
	Email       string         `json:"email,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Apply merges a partial update into the record.
func (r *RemoteSession) Apply(u SessionUpdate) {
	if u.Answers != nil {
		r.Answers = u.Answers
	}
	if u.CurrentStep != nil {
		r.CurrentStep = *u.CurrentStep
	}
	if u.Email != nil {
		r.Email = *u.Email
	}
	if u.CompletedAt != nil {
		t := *u.CompletedAt
		r.CompletedAt = &t
	}
}

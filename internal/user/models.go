package user

import (
	"encoding/json"
	"fmt"
	"time"
)

// User is the persistent user document.
// Validation rules live on the struct tags and are enforced by Schema.Validate.
type User struct {
	ID         string    `json:"id"`
	FirstName  string    `json:"firstName,omitempty"`
	Age        int       `json:"age" validate:"required,min=1,max=129"`
	Email      string    `json:"email,omitempty" validate:"omitempty,min=5,max=45,hasat"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	BestFriend *Ref      `json:"bestFriend,omitempty" validate:"-"`
	Hobbies    []string  `json:"hobbies,omitempty"`
	Address    Address   `json:"address"`
}

// Address is embedded in the user document.
type Address struct {
	Street string `json:"street,omitempty"`
	City   string `json:"city,omitempty"`
}

// Ref points at another user by id. User is filled in by populate.
type Ref struct {
	ID   string
	User *User
}

// RefTo builds an unresolved reference.
func RefTo(id string) *Ref { return &Ref{ID: id} }

// Resolved reports whether the referenced user has been loaded.
func (r *Ref) Resolved() bool { return r != nil && r.User != nil }

// MarshalJSON renders a resolved reference as the full user and an
// unresolved one as its id.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.User != nil {
		return json.Marshal(r.User)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON accepts either an id string or a user object.
func (r *Ref) UnmarshalJSON(b []byte) error {
	var id string
	if err := json.Unmarshal(b, &id); err == nil {
		r.ID, r.User = id, nil
		return nil
	}
	var u User
	if err := json.Unmarshal(b, &u); err != nil {
		return fmt.Errorf("bestFriend: expected id or user object: %w", err)
	}
	r.ID, r.User = u.ID, &u
	return nil
}

// NameAndAge is computed from the current field values and never stored.
func (u User) NameAndAge() string {
	return fmt.Sprintf("%s - %d", u.FirstName, u.Age)
}

// SayHi returns the user's greeting.
func (u User) SayHi() string {
	return "Hi my name is " + u.FirstName
}

// IsNew reports whether the user has not been persisted yet.
func (u User) IsNew() bool { return u.ID == "" }

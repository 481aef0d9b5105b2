package user

import (
	"context"
	"time"
)

// Hook runs synchronously right before a user is written. Returning an error
// aborts the write.
type Hook func(ctx context.Context, u *User) error

// Hooks is an ordered pre-save pipeline.
type Hooks []Hook

// Run executes every hook in order and stops at the first error.
func (h Hooks) Run(ctx context.Context, u *User) error {
	for _, hook := range h {
		if err := hook(ctx, u); err != nil {
			return err
		}
	}
	return nil
}

// TouchUpdatedAt returns the default pre-save hook: it stamps UpdatedAt with
// now(), replacing whatever the caller put there.
func TouchUpdatedAt(now func() time.Time) Hook {
	return func(_ context.Context, u *User) error {
		u.UpdatedAt = now().UTC()
		return nil
	}
}

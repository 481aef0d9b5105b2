package user

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSchema_RegistersCustomRules(t *testing.T) {
	var s *Schema
	require.NotPanics(t, func() { s = NewSchema() })
	ve, ok := AsValidationError(s.Validate(&User{Age: 3, Email: "kyle.example.com"}))
	require.True(t, ok)
	require.Equal(t, "hasat", ve.Errors[0].Rule)
}

func TestValidate_AgeBounds(t *testing.T) {
	s := NewSchema()
	for age := 1; age <= 129; age++ {
		require.NoError(t, s.Validate(&User{FirstName: "Kyle", Age: age}), "age %d", age)
	}
	for _, age := range []int{-5, 0, 130, 500} {
		err := s.Validate(&User{FirstName: "Kyle", Age: age})
		ve, ok := AsValidationError(err)
		require.True(t, ok, "age %d: expected ValidationError, got %v", age, err)
		require.Equal(t, []string{"age"}, ve.Fields())
	}
}

func TestValidate_MissingAgeIsRequired(t *testing.T) {
	err := NewSchema().Validate(&User{FirstName: "Joe"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Len(t, ve.Errors, 1)
	require.Equal(t, "required", ve.Errors[0].Rule)
	require.Equal(t, "is required", ve.Errors[0].Reason)
}

func TestValidate_Email(t *testing.T) {
	s := NewSchema()

	require.NoError(t, s.Validate(&User{Age: 20}), "email is optional")
	require.NoError(t, s.Validate(&User{Age: 20, Email: "kyle@test.com"}))

	for _, email := range []string{"kyle.test.com", "nobody-here", "plainaddress"} {
		err := s.Validate(&User{Age: 20, Email: email})
		ve, ok := AsValidationError(err)
		require.True(t, ok, "email %q", email)
		require.Equal(t, "hasat", ve.Errors[0].Rule)
	}

	err := s.Validate(&User{Age: 20, Email: "a@b"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.Equal(t, "min", ve.Errors[0].Rule)
	require.Contains(t, ve.Errors[0].Reason, "characters")
}

func TestValidate_ReportsEveryViolation(t *testing.T) {
	err := NewSchema().Validate(&User{Age: 200, Email: "nope"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"age", "email"}, ve.Fields())
	require.Contains(t, ve.Error(), "age must be at most 129")
}

func TestNormalize_LowercasesEmail(t *testing.T) {
	u := &User{Age: 30, Email: "Kyle@Example.COM"}
	Normalize(u)
	require.Equal(t, "kyle@example.com", u.Email)
	require.NoError(t, NewSchema().Validate(u))
}

func TestValidate_IgnoresPopulatedFriend(t *testing.T) {
	// a projected friend without age must not make the owner invalid
	u := &User{Age: 30, BestFriend: &Ref{ID: "abc", User: &User{ID: "abc"}}}
	require.NoError(t, NewSchema().Validate(u))
}

package user

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilter_AgeRangeIsExclusive(t *testing.T) {
	f := Where(Gt(FieldAge, 18), Lt(FieldAge, 25))
	for age := 1; age <= 129; age++ {
		ok, err := f.Matches(&User{Age: age})
		require.NoError(t, err)
		require.Equal(t, age > 18 && age < 25, ok, "age %d", age)
	}
}

func TestFilter_ConditionsCombineAsAnd(t *testing.T) {
	f := Where(Eq(FieldFirstName, "Kyle")).And(Gte(FieldAge, 20))

	ok, err := f.Matches(&User{FirstName: "Kyle", Age: 27})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = f.Matches(&User{FirstName: "Kyle", Age: 19})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = f.Matches(&User{FirstName: "Joe", Age: 27})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFilter_AndDoesNotMutateReceiver(t *testing.T) {
	base := Where(Eq(FieldAge, 1))
	_ = base.And(Eq(FieldFirstName, "x"))
	require.Len(t, base, 1)
}

func TestFilter_ContainsFold(t *testing.T) {
	f := Where(Match(FieldFirstName, ContainsFold("kyle")))
	for name, want := range map[string]bool{"Kyle": true, "KYLE": true, "Mikyle Jr": true, "Kyl": false, "": false} {
		ok, err := f.Matches(&User{FirstName: name, Age: 1})
		require.NoError(t, err)
		require.Equal(t, want, ok, "name %q", name)
	}

	// metacharacters are literal
	ok, err := Where(Match(FieldFirstName, ContainsFold("a.b"))).Matches(&User{FirstName: "axb"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFilter_MissingFields(t *testing.T) {
	ok, err := Where(Eq(FieldEmail, nil)).Matches(&User{Age: 23})
	require.NoError(t, err)
	require.True(t, ok, "nil matches an absent field")

	ok, err = Where(Eq(FieldEmail, "")).Matches(&User{Age: 23})
	require.NoError(t, err)
	require.False(t, ok, "absent fields do not equal the empty string")
}

func TestFilter_ArraysAndNested(t *testing.T) {
	u := &User{Age: 40, Hobbies: []string{"weight lifting", "bowling"}, Address: Address{Street: "Main St", City: "Boston"}}

	ok, err := Where(Eq(FieldHobbies, "bowling")).Matches(u)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Where(Eq(FieldCity, "Boston"), Eq(FieldStreet, "Main St")).Matches(u)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Where(Eq(FieldCity, "Austin")).Matches(u)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestFilter_TypeMismatchNeverMatches(t *testing.T) {
	ok, err := Where(Eq(FieldAge, "23")).Matches(&User{Age: 23})
	require.NoError(t, err)
	require.False(t, ok)

	now := time.Now()
	ok, err = Where(Lt(FieldCreatedAt, now.Add(time.Minute))).Matches(&User{CreatedAt: now})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestFilter_Normalize(t *testing.T) {
	f, err := Where(Eq("id", "abc")).Normalize()
	require.NoError(t, err)
	require.Equal(t, FieldID, f[0].Field)

	_, err = Where(Eq("nickname", "x")).Normalize()
	require.True(t, errors.Is(err, ErrUnknownField))

	_, err = Where(Condition{Field: FieldAge, Op: "$where", Value: 1}).Normalize()
	require.Error(t, err)

	_, err = Where(Condition{Field: FieldFirstName, Op: OpRegex, Value: "k"}).Normalize()
	require.Error(t, err)

	_, err = Where(Match(FieldFirstName, Regex{Pattern: "("})).Normalize()
	require.Error(t, err)
}

func TestProject(t *testing.T) {
	u := &User{ID: "1", FirstName: "Kyle", Age: 27, Email: "k@test.com", Address: Address{Street: "1 St", City: "Rome"}}

	got := Project(u, []string{FieldAge, FieldCity})
	require.Equal(t, &User{ID: "1", Age: 27, Address: Address{City: "Rome"}}, got)

	full := Project(u, nil)
	require.Equal(t, u, full)
	require.NotSame(t, u, full)

	fields, err := NormalizeFields([]string{"id", " firstName "})
	require.NoError(t, err)
	require.Equal(t, []string{FieldID, FieldFirstName}, fields)

	_, err = NormalizeFields([]string{"password"})
	require.ErrorIs(t, err, ErrUnknownField)
}

func TestNormalizeFields_DropsOverlaps(t *testing.T) {
	fields, err := NormalizeFields([]string{"age", "address", "address.city", "age"})
	require.NoError(t, err)
	require.Equal(t, []string{FieldAge, FieldAddress}, fields)
}

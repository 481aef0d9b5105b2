package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Op is a comparison operator. The values match the Mongo query operators.
type Op string

const (
	OpEq    Op = "$eq"
	OpGt    Op = "$gt"
	OpGte   Op = "$gte"
	OpLt    Op = "$lt"
	OpLte   Op = "$lte"
	OpRegex Op = "$regex"
)

// Field names as stored in the user document.
const (
	FieldID         = "_id"
	FieldFirstName  = "firstName"
	FieldAge        = "age"
	FieldEmail      = "email"
	FieldCreatedAt  = "createdAt"
	FieldUpdatedAt  = "updatedAt"
	FieldBestFriend = "bestFriend"
	FieldHobbies    = "hobbies"
	FieldAddress    = "address"
	FieldStreet     = "address.street"
	FieldCity       = "address.city"
)

var knownFields = map[string]bool{
	FieldID: true, FieldFirstName: true, FieldAge: true, FieldEmail: true,
	FieldCreatedAt: true, FieldUpdatedAt: true, FieldBestFriend: true,
	FieldHobbies: true, FieldAddress: true, FieldStreet: true, FieldCity: true,
}

// CanonicalField maps a field name onto its stored name ("id" is accepted for "_id").
func CanonicalField(name string) (string, error) {
	if name == "id" {
		return FieldID, nil
	}
	if !knownFields[name] {
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return name, nil
}

// Regex is a pattern condition value. Options follow Mongo ("i" = case-insensitive).
type Regex struct {
	Pattern string
	Options string
}

// ContainsFold matches s anywhere in the field, ignoring case. s is taken literally.
func ContainsFold(s string) Regex {
	return Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func (r Regex) compile() (*regexp.Regexp, error) {
	expr := r.Pattern
	if strings.Contains(r.Options, "i") {
		expr = "(?i)" + expr
	}
	return regexp.Compile(expr)
}

// Condition is a single field comparison.
type Condition struct {
	Field string
	Op    Op
	Value any
}

// Filter is a conjunction of conditions: a document matches when every
// condition holds. An empty filter matches everything.
type Filter []Condition

func Eq(field string, v any) Condition { return Condition{Field: field, Op: OpEq, Value: v} }
func Gt(field string, v any) Condition { return Condition{Field: field, Op: OpGt, Value: v} }
func Gte(field string, v any) Condition { return Condition{Field: field, Op: OpGte, Value: v} }
func Lt(field string, v any) Condition { return Condition{Field: field, Op: OpLt, Value: v} }
func Lte(field string, v any) Condition { return Condition{Field: field, Op: OpLte, Value: v} }
func Match(field string, r Regex) Condition {
	return Condition{Field: field, Op: OpRegex, Value: r}
}

// Where builds a filter from conditions.
func Where(c ...Condition) Filter { return Filter(c) }

// And returns a new filter narrowed by c. f is not modified.
func (f Filter) And(c ...Condition) Filter {
	out := make(Filter, 0, len(f)+len(c))
	out = append(out, f...)
	return append(out, c...)
}

// Normalize returns the filter with canonical field names, or an error for an
// unknown field, an unsupported operator or a bad regex.
func (f Filter) Normalize() (Filter, error) {
	out := make(Filter, 0, len(f))
	for _, c := range f {
		name, err := CanonicalField(c.Field)
		if err != nil {
			return nil, err
		}
		switch c.Op {
		case OpEq, OpGt, OpGte, OpLt, OpLte:
		case OpRegex:
			r, ok := c.Value.(Regex)
			if !ok {
				return nil, fmt.Errorf("%s on %s: value must be a Regex, got %T", c.Op, name, c.Value)
			}
			if _, err := r.compile(); err != nil {
				return nil, fmt.Errorf("%s on %s: %w", c.Op, name, err)
			}
		default:
			return nil, fmt.Errorf("unsupported operator %q on %s", c.Op, name)
		}
		out = append(out, Condition{Field: name, Op: c.Op, Value: c.Value})
	}
	return out, nil
}

// Matches evaluates the filter against an in-memory user.
func (f Filter) Matches(u *User) (bool, error) {
	norm, err := f.Normalize()
	if err != nil {
		return false, err
	}
	for _, c := range norm {
		ok, err := c.matches(u)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c Condition) matches(u *User) (bool, error) {
	val, present := fieldValue(u, c.Field)
	if c.Op == OpEq && c.Value == nil {
		return !present, nil
	}
	if !present {
		return false, nil
	}
	if c.Op == OpRegex {
		re, err := c.Value.(Regex).compile()
		if err != nil {
			return false, err
		}
		switch v := val.(type) {
		case string:
			return re.MatchString(v), nil
		case []string:
			for _, s := range v {
				if re.MatchString(s) {
					return true, nil
				}
			}
		}
		return false, nil
	}
	// array fields match when any element satisfies the comparison
	if arr, ok := val.([]string); ok {
		for _, s := range arr {
			if cmp, ok := compare(s, c.Value); ok && opHolds(c.Op, cmp) {
				return true, nil
			}
		}
		return false, nil
	}
	cmp, ok := compare(val, c.Value)
	if !ok {
		return false, nil
	}
	return opHolds(c.Op, cmp), nil
}

func opHolds(op Op, cmp int) bool {
	switch op {
	case OpEq:
		return cmp == 0
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	case OpLte:
		return cmp <= 0
	}
	return false
}

// compare orders a against b. ok is false when the values are not comparable,
// which never matches (values of different types never compare equal).
func compare(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	case Address:
		bv, ok := b.(Address)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		return 0, false
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// fieldValue returns the value of a canonical field and whether it would be
// present in the stored document (empty optional fields are not stored).
func fieldValue(u *User, field string) (any, bool) {
	switch field {
	case FieldID:
		return u.ID, u.ID != ""
	case FieldFirstName:
		return u.FirstName, u.FirstName != ""
	case FieldAge:
		return u.Age, true
	case FieldEmail:
		return u.Email, u.Email != ""
	case FieldCreatedAt:
		return u.CreatedAt, true
	case FieldUpdatedAt:
		return u.UpdatedAt, true
	case FieldBestFriend:
		if u.BestFriend == nil || u.BestFriend.ID == "" {
			return "", false
		}
		return u.BestFriend.ID, true
	case FieldHobbies:
		return u.Hobbies, len(u.Hobbies) > 0
	case FieldAddress:
		return u.Address, true
	case FieldStreet:
		return u.Address.Street, u.Address.Street != ""
	case FieldCity:
		return u.Address.City, u.Address.City != ""
	}
	return nil, false
}

// FindOptions controls a multi-document find.
type FindOptions struct {
	// Limit caps the number of results; zero means no limit.
	Limit int64
	// Fields is the projection; empty means every field. The id is always returned.
	Fields []string
}

// NormalizeFields canonicalizes a projection. Duplicates and sub-paths of an
// already selected parent are dropped.
func NormalizeFields(fields []string) ([]string, error) {
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		name, err := CanonicalField(strings.TrimSpace(f))
		if err != nil {
			return nil, err
		}
		seen[name] = true
	}
	out := make([]string, 0, len(seen))
	emitted := make(map[string]bool, len(seen))
	for _, f := range fields {
		name, _ := CanonicalField(strings.TrimSpace(f))
		if emitted[name] {
			continue
		}
		if parent, _, nested := strings.Cut(name, "."); nested && seen[parent] {
			continue
		}
		emitted[name] = true
		out = append(out, name)
	}
	return out, nil
}

// Project returns a copy of u holding only the selected fields plus the id.
// fields must already be canonical.
func Project(u *User, fields []string) *User {
	if len(fields) == 0 {
		cp := *u
		return &cp
	}
	out := &User{ID: u.ID}
	for _, f := range fields {
		switch f {
		case FieldFirstName:
			out.FirstName = u.FirstName
		case FieldAge:
			out.Age = u.Age
		case FieldEmail:
			out.Email = u.Email
		case FieldCreatedAt:
			out.CreatedAt = u.CreatedAt
		case FieldUpdatedAt:
			out.UpdatedAt = u.UpdatedAt
		case FieldBestFriend:
			out.BestFriend = u.BestFriend
		case FieldHobbies:
			out.Hobbies = u.Hobbies
		case FieldAddress:
			out.Address = u.Address
		case FieldStreet:
			out.Address.Street = u.Address.Street
		case FieldCity:
			out.Address.City = u.Address.City
		}
	}
	return out
}

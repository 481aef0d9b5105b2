package repository

import (
	"testing"
	"time"

	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestToBSON_MergesSameFieldAndAndsFields(t *testing.T) {
	q, err := toBSON(user.Where(
		user.Gt(user.FieldAge, 18),
		user.Eq(user.FieldFirstName, "Kyle"),
		user.Lt(user.FieldAge, 25),
	))
	require.NoError(t, err)
	require.Equal(t, bson.D{
		{Key: "age", Value: bson.D{{Key: "$gt", Value: 18}, {Key: "$lt", Value: 25}}},
		{Key: "firstName", Value: bson.D{{Key: "$eq", Value: "Kyle"}}},
	}, q)
}

func TestToBSON_IdsAndRegex(t *testing.T) {
	oid := primitive.NewObjectID()
	q, err := toBSON(user.Where(
		user.Eq("id", oid.Hex()),
		user.Match(user.FieldFirstName, user.ContainsFold("ky")),
	))
	require.NoError(t, err)
	require.Equal(t, bson.D{
		{Key: "_id", Value: bson.D{{Key: "$eq", Value: oid}}},
		{Key: "firstName", Value: bson.D{{Key: "$regex", Value: primitive.Regex{Pattern: "ky", Options: "i"}}}},
	}, q)

	// an id that is not an ObjectID stays a string and matches nothing
	q, err = toBSON(user.Where(user.Eq(user.FieldBestFriend, "not-hex")))
	require.NoError(t, err)
	require.Equal(t, "not-hex", q[0].Value.(bson.D)[0].Value)

	empty, err := toBSON(nil)
	require.NoError(t, err)
	require.Empty(t, empty)

	_, err = toBSON(user.Where(user.Eq("nickname", 1)))
	require.ErrorIs(t, err, user.ErrUnknownField)
}

func TestProjection(t *testing.T) {
	require.Nil(t, projection(nil))
	require.Equal(t, bson.D{{Key: "age", Value: 1}, {Key: "address.city", Value: 1}}, projection([]string{"age", "address.city"}))
}

func TestRecordRoundTrip(t *testing.T) {
	oid := primitive.NewObjectID()
	friend := primitive.NewObjectID()
	now := time.Now().UTC().Truncate(time.Millisecond)
	u := &user.User{
		ID: oid.Hex(), FirstName: "Kyle", Age: 27, Email: "kyle@test.com",
		CreatedAt: now, UpdatedAt: now,
		BestFriend: user.RefTo(friend.Hex()),
		Hobbies:    []string{"bowling"},
		Address:    user.Address{Street: "Main St", City: "Boston"},
	}
	rec, err := toRecord(u)
	require.NoError(t, err)
	require.Equal(t, oid, rec.ID)
	require.Equal(t, friend, *rec.BestFriend)

	// through real BSON to make sure the tags line up
	raw, err := bson.Marshal(rec)
	require.NoError(t, err)
	var back userRecord
	require.NoError(t, bson.Unmarshal(raw, &back))
	require.Equal(t, u, fromRecord(back))

	_, err = toRecord(&user.User{Age: 1, BestFriend: user.RefTo("zzz")})
	ve, ok := user.AsValidationError(err)
	require.True(t, ok)
	require.Equal(t, []string{"bestFriend"}, ve.Fields())
}

func TestRecordOmitsEmptyOptionalFields(t *testing.T) {
	rec, err := toRecord(&user.User{FirstName: "Joe", Age: 23})
	require.NoError(t, err)
	raw, err := bson.Marshal(rec)
	require.NoError(t, err)
	var m bson.M
	require.NoError(t, bson.Unmarshal(raw, &m))
	require.NotContains(t, m, "_id")
	require.NotContains(t, m, "email")
	require.NotContains(t, m, "bestFriend")
	require.EqualValues(t, 23, m["age"])
}

func TestUpdateDoc(t *testing.T) {
	rec := userRecord{ID: primitive.NewObjectID(), FirstName: "Anna Maria", Age: 26, CreatedAt: time.Now()}
	doc := updateDoc(rec)
	set := doc["$set"].(bson.M)
	require.Equal(t, "Anna Maria", set["firstName"])
	require.NotContains(t, set, "_id")
	require.NotContains(t, set, "createdAt")
	unset := doc["$unset"].(bson.M)
	require.Contains(t, unset, "email")
	require.Contains(t, unset, "bestFriend")
	require.Contains(t, unset, "hobbies")
}

func TestToBSON_AddressMatchesStoredForm(t *testing.T) {
	q, err := toBSON(user.Where(user.Eq(user.FieldAddress, user.Address{Street: "Main"})))
	require.NoError(t, err)
	rec, err := toRecord(&user.User{Age: 1, Address: user.Address{Street: "Main"}})
	require.NoError(t, err)

	encode := func(v any) bson.Raw {
		raw, err := bson.Marshal(bson.D{{Key: "v", Value: v}})
		require.NoError(t, err)
		return raw
	}
	got := q[0].Value.(bson.D)[0].Value
	require.Equal(t, encode(rec.Address), encode(got))
	require.Equal(t, encode(bson.D{{Key: "street", Value: "Main"}}), encode(got))
}

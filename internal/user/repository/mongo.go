package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogotex/gogotex/backend/userstore/internal/database"
	"github.com/gogotex/gogotex/backend/userstore/internal/user"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo stores users in a MongoDB collection. Ids are ObjectIDs in the
// store and hex strings everywhere else.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the indexes the finders rely on. It is idempotent.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	idx := []mongo.IndexModel{
		{Keys: bson.D{{Key: user.FieldFirstName, Value: 1}}},
		{Keys: bson.D{{Key: user.FieldAge, Value: 1}}},
	}
	if _, err := m.col.Indexes().CreateMany(ctx, idx); err != nil {
		return database.Classify("create indexes", err)
	}
	return nil
}

type addressRecord struct {
	Street string `bson:"street,omitempty"`
	City   string `bson:"city,omitempty"`
}

// userRecord is the stored shape of a user.
type userRecord struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty"`
	FirstName  string              `bson:"firstName,omitempty"`
	Age        int                 `bson:"age"`
	Email      string              `bson:"email,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt"`
	BestFriend *primitive.ObjectID `bson:"bestFriend,omitempty"`
	Hobbies    []string            `bson:"hobbies,omitempty"`
	Address    addressRecord       `bson:"address"`
}

func invalidRef(id string) error {
	return &user.ValidationError{Errors: []user.FieldError{{
		Field: user.FieldBestFriend, Rule: "objectid", Reason: fmt.Sprintf("%q is not a valid id", id),
	}}}
}

func toRecord(u *user.User) (userRecord, error) {
	rec := userRecord{
		FirstName: u.FirstName,
		Age:       u.Age,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		Hobbies:   u.Hobbies,
		Address:   addressRecord{Street: u.Address.Street, City: u.Address.City},
	}
	if u.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.ID)
		if err != nil {
			return rec, user.ErrNotFound
		}
		rec.ID = oid
	}
	if u.BestFriend != nil && u.BestFriend.ID != "" {
		oid, err := primitive.ObjectIDFromHex(u.BestFriend.ID)
		if err != nil {
			return rec, invalidRef(u.BestFriend.ID)
		}
		rec.BestFriend = &oid
	}
	return rec, nil
}

func fromRecord(rec userRecord) *user.User {
	u := &user.User{
		FirstName: rec.FirstName,
		Age:       rec.Age,
		Email:     rec.Email,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		Hobbies:   rec.Hobbies,
		Address:   user.Address{Street: rec.Address.Street, City: rec.Address.City},
	}
	if !rec.ID.IsZero() {
		u.ID = rec.ID.Hex()
	}
	if rec.BestFriend != nil {
		u.BestFriend = user.RefTo(rec.BestFriend.Hex())
	}
	return u
}

// updateDoc builds the update for an existing user. _id and createdAt are
// never written; emptied optional fields are unset.
func updateDoc(rec userRecord) bson.M {
	set := bson.M{
		user.FieldAge:       rec.Age,
		user.FieldUpdatedAt: rec.UpdatedAt,
		user.FieldAddress:   rec.Address,
	}
	unset := bson.M{}
	put := func(field string, v any, empty bool) {
		if empty {
			unset[field] = ""
			return
		}
		set[field] = v
	}
	put(user.FieldFirstName, rec.FirstName, rec.FirstName == "")
	put(user.FieldEmail, rec.Email, rec.Email == "")
	put(user.FieldBestFriend, rec.BestFriend, rec.BestFriend == nil)
	put(user.FieldHobbies, rec.Hobbies, len(rec.Hobbies) == 0)

	doc := bson.M{"$set": set}
	if len(unset) > 0 {
		doc["$unset"] = unset
	}
	return doc
}

// queryValue converts a filter operand into its stored form. Hex ids for _id
// and bestFriend become ObjectIDs; a string that is not a valid ObjectID is
// kept as-is so it simply matches nothing. Addresses are encoded the way
// they are written, since Mongo compares subdocuments exactly.
func queryValue(field string, v any) any {
	switch a := v.(type) {
	case user.Address:
		return addressRecord{Street: a.Street, City: a.City}
	case *user.Address:
		if a != nil {
			return addressRecord{Street: a.Street, City: a.City}
		}
	}
	if field != user.FieldID && field != user.FieldBestFriend {
		return v
	}
	s, ok := v.(string)
	if !ok {
		return v
	}
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid
	}
	return s
}

// toBSON translates a filter into a Mongo query. Conditions on the same
// field are merged into one operator document; all fields are ANDed.
func toBSON(f user.Filter) (bson.D, error) {
	norm, err := f.Normalize()
	if err != nil {
		return nil, err
	}
	out := bson.D{}
	pos := map[string]int{}
	for _, c := range norm {
		var val any
		switch c.Op {
		case user.OpRegex:
			r := c.Value.(user.Regex)
			val = primitive.Regex{Pattern: r.Pattern, Options: r.Options}
		default:
			val = queryValue(c.Field, c.Value)
		}
		i, ok := pos[c.Field]
		if !ok {
			pos[c.Field] = len(out)
			out = append(out, bson.E{Key: c.Field, Value: bson.D{{Key: string(c.Op), Value: val}}})
			continue
		}
		ops := out[i].Value.(bson.D)
		out[i].Value = append(ops, bson.E{Key: string(c.Op), Value: val})
	}
	return out, nil
}

func projection(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	p := make(bson.D, 0, len(fields))
	for _, f := range fields {
		p = append(p, bson.E{Key: f, Value: 1})
	}
	return p
}

func (m *MongoRepo) Insert(ctx context.Context, u *user.User) error {
	rec, err := toRecord(u)
	if err != nil {
		return err
	}
	res, err := m.col.InsertOne(ctx, rec)
	if err != nil {
		return database.Classify("insert", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("insert: unexpected id type %T", res.InsertedID)
	}
	u.ID = oid.Hex()
	return nil
}

func (m *MongoRepo) Update(ctx context.Context, u *user.User) (*user.User, error) {
	rec, err := toRecord(u)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated userRecord
	err = m.col.FindOneAndUpdate(ctx, bson.M{user.FieldID: rec.ID}, updateDoc(rec), opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, database.Classify("update", err)
	}
	return fromRecord(updated), nil
}

func (m *MongoRepo) FindByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, user.ErrNotFound
	}
	return m.findOne(ctx, bson.D{{Key: user.FieldID, Value: oid}})
}

func (m *MongoRepo) FindOne(ctx context.Context, f user.Filter) (*user.User, error) {
	q, err := toBSON(f)
	if err != nil {
		return nil, err
	}
	return m.findOne(ctx, q)
}

func (m *MongoRepo) findOne(ctx context.Context, q bson.D) (*user.User, error) {
	var rec userRecord
	if err := m.col.FindOne(ctx, q).Decode(&rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, user.ErrNotFound
		}
		return nil, database.Classify("find one", err)
	}
	return fromRecord(rec), nil
}

func (m *MongoRepo) Find(ctx context.Context, f user.Filter, opts user.FindOptions) ([]*user.User, error) {
	q, err := toBSON(f)
	if err != nil {
		return nil, err
	}
	fields, err := user.NormalizeFields(opts.Fields)
	if err != nil {
		return nil, err
	}
	fo := options.Find()
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if p := projection(fields); p != nil {
		fo.SetProjection(p)
	}
	cur, err := m.col.Find(ctx, q, fo)
	if err != nil {
		return nil, database.Classify("find", err)
	}
	defer cur.Close(ctx)
	out := []*user.User{}
	for cur.Next(ctx) {
		var rec userRecord
		if err := cur.Decode(&rec); err != nil {
			return nil, err
		}
		out = append(out, fromRecord(rec))
	}
	if err := cur.Err(); err != nil {
		return nil, database.Classify("find", err)
	}
	return out, nil
}

func (m *MongoRepo) DeleteOne(ctx context.Context, f user.Filter) (int64, error) {
	q, err := toBSON(f)
	if err != nil {
		return 0, err
	}
	res, err := m.col.DeleteOne(ctx, q)
	if err != nil {
		return 0, database.Classify("delete one", err)
	}
	return res.DeletedCount, nil
}

func (m *MongoRepo) DeleteMany(ctx context.Context, f user.Filter) (int64, error) {
	q, err := toBSON(f)
	if err != nil {
		return 0, err
	}
	res, err := m.col.DeleteMany(ctx, q)
	if err != nil {
		return 0, database.Classify("delete many", err)
	}
	return res.DeletedCount, nil
}

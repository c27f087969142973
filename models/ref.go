package models

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContributionRef is a task's back reference to a contribution. Older
// documents stored these as hex strings or as embedded {_id: ...} objects;
// decoding normalises all three into the id itself.
type ContributionRef primitive.ObjectID

func (r ContributionRef) ObjectID() primitive.ObjectID { return primitive.ObjectID(r) }

func (r ContributionRef) Hex() string { return primitive.ObjectID(r).Hex() }

func (r ContributionRef) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(primitive.ObjectID(r))
}

func (r *ContributionRef) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*r = ContributionRef(raw.ObjectID())
		return nil
	case bsontype.String:
		oid, err := primitive.ObjectIDFromHex(raw.StringValue())
		if err != nil {
			return fmt.Errorf("contribution ref: %w", err)
		}
		*r = ContributionRef(oid)
		return nil
	case bsontype.EmbeddedDocument:
		inner := raw.Document().Lookup("_id")
		if inner.Type == 0 {
			return fmt.Errorf("contribution ref: embedded document has no _id")
		}
		return r.UnmarshalBSONValue(inner.Type, inner.Value)
	default:
		return fmt.Errorf("contribution ref: unsupported bson type %s", t)
	}
}

func (r ContributionRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Hex())
}

func (r *ContributionRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return err
	}
	*r = ContributionRef(oid)
	return nil
}

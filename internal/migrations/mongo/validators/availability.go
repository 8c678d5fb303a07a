package validators

import "go.mongodb.org/mongo-driver/bson"

// AvailabilityValidator enforces the counter bounds at the storage layer:
// sites can never go negative and version only counts up.
var AvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"campsite_id",
			"date",
			"sites",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"campsite_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"date": bson.M{
				"bsonType": "date",
			},

			"sites": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  1000,
			},

			"version": bson.M{
				"bsonType": "long",
				"minimum":  0,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

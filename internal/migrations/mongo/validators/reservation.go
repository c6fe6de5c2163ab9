package validators

import "go.mongodb.org/mongo-driver/bson"

var ReservationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"room_id",
			"room_name",
			"location",
			"user_id",
			"num_users",
			"purpose",
			"start_time",
			"end_time",
			"status",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"room_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"room_name": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"location": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 100,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"participants": bson.M{
				"bsonType": "array",
				"maxItems": 200,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"name", "id_number", "department"},
					"properties": bson.M{
						"name":       bson.M{"bsonType": "string"},
						"id_number":  bson.M{"bsonType": "string"},
						"department": bson.M{"bsonType": "string"},
					},
				},
			},

			"num_users": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  200,
			},

			"purpose": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 500,
			},

			"start_time": bson.M{
				"bsonType": "date",
			},

			"end_time": bson.M{
				"bsonType": "date",
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"approved",
					"rejected",
					"ongoing",
					"completed",
					"cancelled",
					"expired",
				},
			},

			"extension_requested": bson.M{
				"bsonType": "bool",
			},

			"extension_status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"none",
					"pending",
					"approved",
					"rejected",
				},
			},

			"extension_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"extended_end": bson.M{
				"bsonType": []string{"date", "null"},
			},

			"extension_open_ended": bson.M{
				"bsonType": "bool",
			},

			"version": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

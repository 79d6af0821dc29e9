// Package ids generates and validates the 24-character hex identifiers used for users,
// profile items and notifications.
package ids

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// New returns a fresh identifier.
func New() string {
	return primitive.NewObjectID().Hex()
}

// Valid reports whether s is a well-formed identifier (24 hex characters).
func Valid(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}

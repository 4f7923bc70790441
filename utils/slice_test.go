package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUniqueObjectIDs(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, []primitive.ObjectID{a, b}, UniqueObjectIDs([]primitive.ObjectID{a, b, a, b, a}))
	assert.Empty(t, UniqueObjectIDs(nil))
}

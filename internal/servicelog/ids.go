package servicelog

import "go.mongodb.org/mongo-driver/bson/primitive"

// IDGenerator produces record ids. One generator serves every collection of
// a Manager.
type IDGenerator interface {
	NewID() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

// NewID calls f.
func (f IDGeneratorFunc) NewID() string { return f() }

// ObjectIDGenerator issues MongoDB ObjectID hex strings. They embed a
// timestamp, a per-process random value and a counter, so they are unique
// within and across processes.
type ObjectIDGenerator struct{}

// NewID returns a fresh ObjectID in hex form.
func (ObjectIDGenerator) NewID() string {
	return primitive.NewObjectID().Hex()
}

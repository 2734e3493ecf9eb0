package core

import "github.com/google/uuid"

// Identifier is the stable key of a scene entity. It never changes once
// assigned, unlike dense registry indices.
type Identifier uuid.UUID

var NilIdentifier = Identifier(uuid.Nil)

func NewIdentifier() Identifier {
	return Identifier(uuid.New())
}

func (i Identifier) String() string {
	return uuid.UUID(i).String()
}

func (i Identifier) IsNil() bool {
	return i == NilIdentifier
}

// Package backend contains interfaces and implementations to store and
// retrieve data from the odb
package backend

import (
	"errors"

	"github.com/binarytree/git-go/ginternals"
	"github.com/binarytree/git-go/ginternals/object"
)

// Backend represents an object that can store and retrieve data
// from and to the odb. There is a single implementation, fsbackend, but the
// core never depends on it directly so tests can swap in a fake.
type Backend interface {
	// Close free the resources
	Close() error

	// Init initializes a repository
	Init() error

	// Reference returns a stored reference from its name
	Reference(name string) (*ginternals.Reference, error)
	// WriteReference writes the given reference int the db. If the
	// reference already exists it will be overwritten
	WriteReference(ref *ginternals.Reference) error
	// WriteReferenceSafe writes the given reference in the db
	// ErrRefExists is returned if the reference already exists
	WriteReferenceSafe(ref *ginternals.Reference) error
	// WalkReferences runs the provided method on all the references
	WalkReferences(f RefWalkFunc) error

	// Object returns the object that has given oid
	Object(ginternals.Oid) (*object.Object, error)
	// HasObject returns whether an object exists in the odb
	HasObject(ginternals.Oid) (bool, error)
	// WriteObject adds an object to the odb
	WriteObject(*object.Object) (ginternals.Oid, error)
	// WalkLooseObjectIDs runs the provided method on all the loose ids
	WalkLooseObjectIDs(f OidWalkFunc) error
}

// RefWalkFunc represents a function that will be applied on all references
// found by Walk()
type RefWalkFunc = func(ref *ginternals.Reference) error

// OidWalkFunc represents a function applied to every oid found by
// WalkLooseObjectIDs. Returning OidWalkStop ends the walk early without
// propagating an error.
type OidWalkFunc = func(oid ginternals.Oid) error

// WalkStop is a fake error used to tell Walk() to stop
var WalkStop = errors.New("stop walking") //nolint // the linter expects all errors to start with Err, but since here we're faking an error we don't want that

// OidWalkStop is a fake error used to tell a WalkLooseObjectIDs to stop
var OidWalkStop = errors.New("stop walking") //nolint

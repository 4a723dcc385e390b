package evtfix

import (
	"fmt"
)

// AccessError reports a container that is missing, unreadable or malformed
type AccessError struct {
	Path string
	Err  error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("cannot access container %s: %v", e.Path, e.Err)
}

func (e *AccessError) Unwrap() error {
	return e.Err
}

// MissingGroupError reports a group that does not exist in the container
type MissingGroupError struct {
	Group string
}

func (e *MissingGroupError) Error() string {
	return fmt.Sprintf("group %q not found", e.Group)
}

// KeyNotFoundError reports a key that does not exist in a group
type KeyNotFoundError struct {
	Group string
	Key   string
}

func (e *KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in group %q", e.Key, e.Group)
}

// KeyCollisionError reports a rename whose target name is already taken
type KeyCollisionError struct {
	Group string
	Key   string
}

func (e *KeyCollisionError) Error() string {
	return fmt.Sprintf("key %q already exists in group %q", e.Key, e.Group)
}

// OrderingError reports a rename plan whose traversal order would overwrite
// an entry that has not been renamed yet
type OrderingError struct {
	Step   int
	Source string
	Target string
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("rename step %d (%s -> %s) targets a name that is still pending", e.Step, e.Source, e.Target)
}

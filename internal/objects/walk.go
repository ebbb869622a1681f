package objects

import (
	"errors"
	"fmt"
)

// SkipObject is returned by a WalkFunc to prune the subgraph rooted at
// the current object without stopping the walk.
var SkipObject = errors.New("objects: skip this object")

// WalkFunc is the callback type for Walk. It receives each reachable
// object exactly once.
type WalkFunc func(id ObjectID, obj Object) error

// Walk traverses the object graph depth-first from the start ids,
// following commit-parent, commit-tree, tree-child and tag-target
// edges. Every reachable object is visited exactly once. The graph is
// a DAG by construction (edges are content hashes of already-computed
// children), so the walk always terminates. Each call is independent;
// no cursor state is shared.
func (s *Store) Walk(start []ObjectID, fn WalkFunc) error {
	return s.walk(start, make(map[ObjectID]bool), false, fn)
}

// walk is the shared traversal. When tolerateMissing is set, ids that
// name no stored object are skipped silently; this is how the have
// frontier of a negotiation is handled, since peers may claim tips the
// local store never saw.
func (s *Store) walk(start []ObjectID, visited map[ObjectID]bool, tolerateMissing bool, fn WalkFunc) error {
	pending := make([]ObjectID, 0, len(start))
	for _, id := range start {
		if !id.IsZero() {
			pending = append(pending, id)
		}
	}

	for len(pending) > 0 {
		n := len(pending) - 1
		id := pending[n]
		pending = pending[:n]
		if visited[id] {
			continue
		}
		visited[id] = true

		obj, err := s.Get(id)
		if err != nil {
			if tolerateMissing && errors.Is(err, ErrNotFound) {
				continue
			}
			return err
		}

		if fn != nil {
			err = fn(id, obj)
			if errors.Is(err, SkipObject) {
				continue
			}
			if err != nil {
				return err
			}
		}

		switch obj := obj.(type) {
		case *Commit:
			pending = append(pending, obj.TreeID())
			pending = append(pending, obj.Parents()...)
		case *Tree:
			for _, entry := range obj.Entries() {
				pending = append(pending, entry.ID())
			}
		case *Blob:
			// a blob holds no references
		case *Tag:
			pending = append(pending, obj.TargetID())
		default:
			return fmt.Errorf("objects: walk reached unknown object type %s", obj.Type())
		}
	}
	return nil
}

// Closure computes the objects reachable from want but not reachable
// from any have: the minimal transfer set of a negotiation. Objects in
// the result are ordered commits-first along the traversal, and each
// appears exactly once. Missing objects under a have tip are tolerated;
// a missing object under a want tip is an error.
func (s *Store) Closure(want, have []ObjectID) ([]Object, error) {
	visited := make(map[ObjectID]bool)
	if err := s.walk(have, visited, true, nil); err != nil {
		return nil, err
	}

	var result []Object
	err := s.walk(want, visited, false, func(id ObjectID, obj Object) error {
		result = append(result, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

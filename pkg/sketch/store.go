package sketch

import (
	"maps"
	"slices"
)

// store is the arena that owns entities and constraints. Entities refer to
// each other only by id.
type store struct {
	entities    map[ID]Entity
	constraints map[ConstraintID]*Constraint
}

func newStore() *store {
	return &store{
		entities:    make(map[ID]Entity),
		constraints: make(map[ConstraintID]*Constraint),
	}
}

func (s *store) get(id ID) (Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

func (s *store) point(id ID) (Point, error) {
	e, ok := s.entities[id]
	if !ok {
		return Point{}, unknownEntity(id)
	}
	p, ok := e.(Point)
	if !ok {
		return Point{}, wrongKind(id, e.Kind(), KindPoint)
	}
	return p, nil
}

func (s *store) put(e Entity) {
	s.entities[e.EntityID()] = e
}

// requirePoints checks that every id is a live point.
func (s *store) requirePoints(ids ...ID) error {
	for _, id := range ids {
		if _, err := s.point(id); err != nil {
			return err
		}
	}
	return nil
}

// sortedIDs returns entity ids in issue order.
func (s *store) sortedIDs() []ID {
	return slices.Sorted(maps.Keys(s.entities))
}

func (s *store) sortedConstraintIDs() []ConstraintID {
	return slices.Sorted(maps.Keys(s.constraints))
}

// dependents returns the entities built from point id.
func (s *store) dependents(id ID) []ID {
	var out []ID
	for eid, e := range s.entities {
		if slices.Contains(e.Refs(), id) {
			out = append(out, eid)
		}
	}
	slices.Sort(out)
	return out
}

// remove deletes id, every entity built from it, and every constraint that
// references any removed entity. It returns the removed entity ids.
func (s *store) remove(id ID) []ID {
	if _, ok := s.entities[id]; !ok {
		return nil
	}
	removed := []ID{id}
	queue := []ID{id}
	seen := map[ID]bool{id: true}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range s.dependents(cur) {
			if !seen[dep] {
				seen[dep] = true
				removed = append(removed, dep)
				queue = append(queue, dep)
			}
		}
	}
	for _, rid := range removed {
		delete(s.entities, rid)
	}
	for cid, c := range s.constraints {
		for _, eid := range c.Entities {
			if seen[eid] {
				delete(s.constraints, cid)
				break
			}
		}
	}
	return removed
}

func (s *store) clear() {
	clear(s.entities)
	clear(s.constraints)
}

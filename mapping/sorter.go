package mapping

// SortEntities orders entities so that every entity comes after the entities
// it references through ManyToOne relations (or, for link tables, through its
// key relations) and after its base entity. A reference cycle is reported as
// a *MappingError wrapping ErrCyclicReference.
func SortEntities(entities []*Entity) ([]*Entity, error) {
	n := len(entities)
	position := make(map[*Entity]int, n)
	for i, e := range entities {
		position[e] = i
	}

	edges := make([][]int, n)
	for i, e := range entities {
		targets, err := referencedEntities(e)
		if err != nil {
			return nil, err
		}
		for _, target := range targets {
			if j, ok := position[target]; ok && j != i {
				edges[i] = append(edges[i], j)
			}
		}
	}

	if n <= 2 {
		return sortPair(entities, edges)
	}

	adjacency := make([][]bool, n)
	outDegree := make([]int, n)
	for i := range adjacency {
		adjacency[i] = make([]bool, n)
		for _, j := range edges[i] {
			if !adjacency[i][j] {
				adjacency[i][j] = true
				outDegree[i]++
			}
		}
	}

	var (
		sorted  = make([]*Entity, 0, n)
		removed = make([]bool, n)
	)
	for len(sorted) < n {
		next := -1
		for i := 0; i < n; i++ {
			if !removed[i] && outDegree[i] == 0 {
				next = i
				break
			}
		}

		if next < 0 {
			var names []string
			for i, e := range entities {
				if !removed[i] {
					names = append(names, e.FullName())
				}
			}
			return nil, (&MappingError{Err: ErrCyclicReference}).withNames(names...)
		}

		removed[next] = true
		sorted = append(sorted, entities[next])
		for i := 0; i < n; i++ {
			if adjacency[i][next] {
				adjacency[i][next] = false
				outDegree[i]--
			}
		}
	}
	return sorted, nil
}

func sortPair(entities []*Entity, edges [][]int) ([]*Entity, error) {
	if len(entities) < 2 {
		return append([]*Entity(nil), entities...), nil
	}
	first, second := len(edges[0]) > 0, len(edges[1]) > 0
	switch {
	case first && second:
		return nil, (&MappingError{Err: ErrCyclicReference}).withNames(entities[0].FullName(), entities[1].FullName())
	case first:
		return []*Entity{entities[1], entities[0]}, nil
	default:
		return []*Entity{entities[0], entities[1]}, nil
	}
}

func referencedEntities(e *Entity) ([]*Entity, error) {
	var targets []*Entity

	if base, err := e.BaseModel(); err != nil {
		return nil, err
	} else if base != nil {
		targets = append(targets, base)
	}

	var relations []*Relation
	if e.IsLinkTable {
		for _, k := range e.Keys() {
			if k.Relation != nil {
				relations = append(relations, k.Relation)
			}
		}
	} else {
		relations = e.Relations
	}

	for _, rel := range relations {
		if rel.RelationType != ManyToOne || rel.Exclude {
			continue
		}
		target, err := e.ReferenceEntity(rel)
		if err != nil {
			return nil, err
		}
		targets = append(targets, target)
	}
	return targets, nil
}

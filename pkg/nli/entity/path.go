package entity

import "strings"

// Direction is the way a property is traversed in a path.
type Direction uint8

const (
	Outgoing Direction = iota + 1
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "in"
	}
	return "out"
}

// Step is one hop of a property path.
type Step struct {
	Property  Entity
	Direction Direction
}

// IsTypeRelation reports whether the step follows rdf:type.
func (s Step) IsTypeRelation() bool { return s.Property.ID == RDFType }

// PropertyPath is an ordered, directed sequence of properties.
type PropertyPath []Step

// Key is the identity of the path: its ordered property ids and directions.
func (p PropertyPath) Key() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.Direction.String() + ":" + s.Property.ID
	}
	return strings.Join(parts, " ")
}

// Equal compares two paths by identity.
func (p PropertyPath) Equal(o PropertyPath) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i].Direction != o[i].Direction || p[i].Property.ID != o[i].Property.ID {
			return false
		}
	}
	return true
}

// Reversed reads the path from its far end: steps in reverse order, each
// with its direction flipped.
func (p PropertyPath) Reversed() PropertyPath {
	out := make(PropertyPath, len(p))
	for i, s := range p {
		if s.Direction == Incoming {
			s.Direction = Outgoing
		} else {
			s.Direction = Incoming
		}
		out[len(p)-1-i] = s
	}
	return out
}

// Text joins the first rankable value of every step.
func (p PropertyPath) Text() string {
	parts := make([]string, 0, len(p))
	for _, s := range p {
		if vals := s.Property.RankableValues(); len(vals) > 0 {
			parts = append(parts, vals[0])
		}
	}
	return strings.Join(parts, " ")
}

func (p PropertyPath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		prefix := ""
		if s.Direction == Incoming {
			prefix = "^"
		}
		parts[i] = prefix + "<" + s.Property.ID + ">"
	}
	return strings.Join(parts, "/")
}

// Route is an immutable traversal from a pivot. Extending a route allocates a
// new value that references its prefix, so routes sharing a prefix share
// memory and never observe each other's extensions.
type Route struct {
	parent   *Route
	step     Step
	waypoint Entity
	length   int
}

// Start creates the zero-length route at pivot.
func Start(pivot Entity) *Route {
	return &Route{waypoint: pivot}
}

// Extend returns a new route with one more hop.
func (r *Route) Extend(step Step, waypoint Entity) *Route {
	return &Route{parent: r, step: step, waypoint: waypoint, length: r.length + 1}
}

// Len is the number of hops.
func (r *Route) Len() int { return r.length }

// Last is the route's final waypoint.
func (r *Route) Last() Entity { return r.waypoint }

// Pivot is the first waypoint.
func (r *Route) Pivot() Entity {
	cur := r
	for cur.parent != nil {
		cur = cur.parent
	}
	return cur.waypoint
}

// Previous returns the waypoint before the last one.
func (r *Route) Previous() (Entity, bool) {
	if r.parent == nil {
		return Entity{}, false
	}
	return r.parent.waypoint, true
}

// Waypoints lists the visited entities from the pivot on. It always has
// Len()+1 elements.
func (r *Route) Waypoints() []Entity {
	out := make([]Entity, r.length+1)
	for cur := r; cur != nil; cur = cur.parent {
		out[cur.length] = cur.waypoint
	}
	return out
}

// Path is the property path followed by the route.
func (r *Route) Path() PropertyPath {
	out := make(PropertyPath, r.length)
	for cur := r; cur.parent != nil; cur = cur.parent {
		out[cur.length-1] = cur.step
	}
	return out
}

// Revisits reports whether the last waypoint already occurs earlier in the
// route.
func (r *Route) Revisits() bool {
	key := r.waypoint.Key()
	for cur := r.parent; cur != nil; cur = cur.parent {
		if cur.waypoint.Key() == key {
			return true
		}
	}
	return false
}

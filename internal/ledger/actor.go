package ledger

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidActor is returned when an actor payload carries too few fields to
// resolve a class name and object id.
var ErrInvalidActor = errors.New("actor requires at least a class name and an object id")

// bundleMarker is the namespace segment keyword that identifies a subsystem.
const bundleMarker = "Bundle"

// ResolvedActor is what gets stored on a ledger entry: the subsystem, type
// and identity of whatever produced the event. All three may be null.
type ResolvedActor struct {
	BundleName *string
	ClassName  *string
	ObjectID   *int64
}

// Actor identifies the originator of a financial event. A nil Actor means no
// attribution.
type Actor interface {
	Resolve(reg *TypeRegistry) ResolvedActor
}

// ExplicitActor carries all three attribution fields.
type ExplicitActor struct {
	Bundle   string
	Class    string
	ObjectID int64
}

func (a ExplicitActor) Resolve(*TypeRegistry) ResolvedActor {
	return ResolvedActor{
		BundleName: &a.Bundle,
		ClassName:  &a.Class,
		ObjectID:   &a.ObjectID,
	}
}

// InferredActor carries only class and id; the bundle is looked up in the
// type registry. Inference is best effort and intended for display and
// attribution only — name collisions resolve to the first registered match.
type InferredActor struct {
	Class    string
	ObjectID int64
}

func (a InferredActor) Resolve(reg *TypeRegistry) ResolvedActor {
	resolved := ResolvedActor{
		ClassName: &a.Class,
		ObjectID:  &a.ObjectID,
	}
	if reg != nil {
		if bundle, ok := reg.Infer(a.Class); ok {
			resolved.BundleName = &bundle
		}
	}
	return resolved
}

// ObjectActor carries a fully-qualified type name (segments separated by
// backslash or slash) plus an identity. The class is the last segment, the
// bundle the first segment containing the bundle marker.
type ObjectActor struct {
	Type     string
	ObjectID int64
}

func (a ObjectActor) Resolve(*TypeRegistry) ResolvedActor {
	resolved := ResolvedActor{ObjectID: &a.ObjectID}

	parts := splitTypeName(a.Type)
	if len(parts) == 0 {
		return resolved
	}
	class := parts[len(parts)-1]
	resolved.ClassName = &class
	for _, part := range parts[:len(parts)-1] {
		if strings.Contains(part, bundleMarker) {
			bundle := part
			resolved.BundleName = &bundle
			break
		}
	}
	return resolved
}

// TypeRegistry holds the fully-qualified type names the host platform has
// registered, in registration order. It replaces scanning all loaded types:
// the host declares what can act on the ledger instead.
type TypeRegistry struct {
	names []string
}

// NewTypeRegistry creates a registry pre-populated with the given names.
func NewTypeRegistry(names ...string) *TypeRegistry {
	r := &TypeRegistry{}
	for _, n := range names {
		r.Register(n)
	}
	return r
}

// Register adds a fully-qualified type name.
func (r *TypeRegistry) Register(name string) {
	r.names = append(r.names, name)
}

// Infer returns the bundle segment for the first registered type whose simple
// name equals class. Registration order breaks ties.
func (r *TypeRegistry) Infer(class string) (string, bool) {
	for _, name := range r.names {
		parts := splitTypeName(name)
		if len(parts) == 0 || parts[len(parts)-1] != class {
			continue
		}
		for _, part := range parts[:len(parts)-1] {
			if strings.Contains(part, bundleMarker) {
				return part, true
			}
		}
	}
	return "", false
}

func splitTypeName(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return r == '\\' || r == '/'
	})
}

// actorWire is the object form of an actor on the wire.
type actorWire struct {
	Type   *string          `json:"type"`
	Bundle *string          `json:"bundle"`
	Class  *string          `json:"class"`
	ID     *json.RawMessage `json:"id"`
}

// ParseActor decodes the actor field of an inbound financial event. Two
// shapes are accepted: an array [bundle?, class, id] where the last element
// is the id, the second-to-last the class and the first (when three or more
// elements are present) the bundle; or an object {"type": ..., "id": ...}
// (alternatively {"bundle", "class", "id"}). A null or empty payload means no
// actor. A non-empty array with fewer than two elements is ErrInvalidActor.
func ParseActor(raw json.RawMessage) (Actor, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}

	if strings.HasPrefix(trimmed, "[") {
		return parseActorArray(raw)
	}
	return parseActorObject(raw)
}

func parseActorArray(raw json.RawMessage) (Actor, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, ErrInvalidActor
	}
	if len(elems) == 0 {
		return nil, nil
	}
	if len(elems) < 2 {
		return nil, ErrInvalidActor
	}

	id, err := parseActorID(elems[len(elems)-1])
	if err != nil {
		return nil, err
	}
	class, err := parseActorString(elems[len(elems)-2])
	if err != nil {
		return nil, err
	}

	if len(elems) > 2 {
		bundle, err := parseActorString(elems[0])
		if err != nil {
			return nil, err
		}
		return ExplicitActor{Bundle: bundle, Class: class, ObjectID: id}, nil
	}
	return InferredActor{Class: class, ObjectID: id}, nil
}

func parseActorObject(raw json.RawMessage) (Actor, error) {
	var wire actorWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, ErrInvalidActor
	}
	if wire.ID == nil {
		return nil, ErrInvalidActor
	}
	id, err := parseActorID(*wire.ID)
	if err != nil {
		return nil, err
	}

	switch {
	case wire.Type != nil:
		return ObjectActor{Type: *wire.Type, ObjectID: id}, nil
	case wire.Class != nil && wire.Bundle != nil:
		return ExplicitActor{Bundle: *wire.Bundle, Class: *wire.Class, ObjectID: id}, nil
	case wire.Class != nil:
		return InferredActor{Class: *wire.Class, ObjectID: id}, nil
	default:
		return nil, ErrInvalidActor
	}
}

func parseActorID(raw json.RawMessage) (int64, error) {
	var asInt int64
	if err := json.Unmarshal(raw, &asInt); err == nil {
		return asInt, nil
	}
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if id, err := strconv.ParseInt(asString, 10, 64); err == nil {
			return id, nil
		}
	}
	return 0, ErrInvalidActor
}

func parseActorString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", ErrInvalidActor
	}
	return s, nil
}

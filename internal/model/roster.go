package model

import "sort"

// UnassignedName is shown for events without a responsible user.
const UnassignedName = "Not assigned"

// Roster maps responsible user ids to display names.
type Roster map[string]string

// Name resolves id to a display name. Unknown ids are returned unchanged.
func (r Roster) Name(id string) string {
	if id == "" {
		return UnassignedName
	}
	if name, ok := r[id]; ok && name != "" {
		return name
	}
	return id
}

// Person is a single roster entry.
type Person struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// People returns the roster sorted by name, then id.
func (r Roster) People() []Person {
	out := make([]Person, 0, len(r))
	for id, name := range r {
		out = append(out, Person{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

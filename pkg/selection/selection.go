// Package selection models which optional line items of a quote are
// chosen. Optional items belong to named option groups; a group is
// either single-select (one choice replaces the previous one) or
// multi-select (independent toggles). Mandatory items are always
// selected and never tracked here.
package selection

import (
	"errors"
	"sort"
)

// Mode is the selection behavior the quote author assigned to a group.
type Mode string

const (
	ModeSingle Mode = "single"
	ModeMulti  Mode = "multi"
)

// ErrUnknownItem is returned when a toggle or validation references an
// item that is not an optional item of the quote.
var ErrUnknownItem = errors.New("unknown_item")

// Item is the minimal view of a quote line the model needs.
type Item struct {
	ID       string
	Optional bool
	Group    string
}

// Group is a derived option group in item order.
type Group struct {
	Name    string   `json:"name"`
	Mode    Mode     `json:"mode"`
	ItemIDs []string `json:"item_ids"`
}

// DeriveGroups builds the option groups from a quote's items, in order
// of first appearance. Groups missing from modes default to
// single-select. Optional items without a group are independent
// toggles and appear in no group.
func DeriveGroups(items []Item, modes map[string]Mode) []Group {
	var order []string
	byName := map[string]*Group{}
	for _, it := range items {
		if !it.Optional || it.Group == "" {
			continue
		}
		g, ok := byName[it.Group]
		if !ok {
			mode := ModeSingle
			if m, has := modes[it.Group]; has {
				mode = m
			}
			g = &Group{Name: it.Group, Mode: mode}
			byName[it.Group] = g
			order = append(order, it.Group)
		}
		g.ItemIDs = append(g.ItemIDs, it.ID)
	}
	groups := make([]Group, 0, len(order))
	for _, name := range order {
		groups = append(groups, *byName[name])
	}
	return groups
}

// State tracks the selected optional item IDs for one quote.
type State struct {
	items    map[string]Item
	groups   []Group
	groupOf  map[string]string
	modeOf   map[string]Mode
	selected map[string]struct{}
}

// NewState builds an empty selection over the quote's items. Call
// ReplaceFrom with the server-provided selection to initialize it.
func NewState(items []Item, modes map[string]Mode) *State {
	s := &State{
		items:    make(map[string]Item, len(items)),
		groupOf:  map[string]string{},
		modeOf:   map[string]Mode{},
		selected: map[string]struct{}{},
	}
	for _, it := range items {
		s.items[it.ID] = it
	}
	s.groups = DeriveGroups(items, modes)
	for _, g := range s.groups {
		s.modeOf[g.Name] = g.Mode
		for _, id := range g.ItemIDs {
			s.groupOf[id] = g.Name
		}
	}
	return s
}

// Groups returns the derived option groups in item order.
func (s *State) Groups() []Group {
	out := make([]Group, len(s.groups))
	copy(out, s.groups)
	return out
}

// Toggle applies one user interaction. In a single-select group the
// toggled item becomes the group's only selection; re-toggling the
// already selected member is a no-op, so a group is never emptied once
// touched. Multi-select groups and ungrouped optional items flip
// membership.
func (s *State) Toggle(id string) error {
	it, ok := s.items[id]
	if !ok || !it.Optional {
		return ErrUnknownItem
	}

	group, grouped := s.groupOf[id]
	if grouped && s.modeOf[group] == ModeSingle {
		if _, already := s.selected[id]; already {
			return nil
		}
		for _, sibling := range s.siblings(group) {
			delete(s.selected, sibling)
		}
		s.selected[id] = struct{}{}
		return nil
	}

	if _, already := s.selected[id]; already {
		delete(s.selected, id)
	} else {
		s.selected[id] = struct{}{}
	}
	return nil
}

// ReplaceFrom discards the local selection and adopts the
// authoritative set from the server. IDs that do not reference
// optional items are dropped; the server's set is otherwise taken
// as-is, even where it differs from what local toggles could produce.
func (s *State) ReplaceFrom(serverSelected []string) {
	next := make(map[string]struct{}, len(serverSelected))
	for _, id := range serverSelected {
		if it, ok := s.items[id]; ok && it.Optional {
			next[id] = struct{}{}
		}
	}
	s.selected = next
}

// IsSelected reports whether an item is part of the current selection.
// Mandatory items are always selected; unknown IDs never are.
func (s *State) IsSelected(id string) bool {
	it, ok := s.items[id]
	if !ok {
		return false
	}
	if !it.Optional {
		return true
	}
	_, selected := s.selected[id]
	return selected
}

// SelectedIDs returns the selected optional item IDs, sorted.
func (s *State) SelectedIDs() []string {
	out := make([]string, 0, len(s.selected))
	for id := range s.selected {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SelectedCount returns the number of selected optional items.
func (s *State) SelectedCount() int {
	return len(s.selected)
}

// ValidateSelectable reports ErrUnknownItem when any ID does not
// reference an optional item. Used by the server before persisting a
// client-submitted selection.
func (s *State) ValidateSelectable(ids []string) error {
	for _, id := range ids {
		if it, ok := s.items[id]; !ok || !it.Optional {
			return ErrUnknownItem
		}
	}
	return nil
}

func (s *State) siblings(group string) []string {
	for _, g := range s.groups {
		if g.Name == group {
			return g.ItemIDs
		}
	}
	return nil
}

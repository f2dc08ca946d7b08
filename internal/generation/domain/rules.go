package domain

import (
	"fmt"
	"strings"

	requirementsdomain "github.com/Calle9610/smart-offertgenerator-sub001/internal/requirements/domain"
)

// RuleSpec is one parsed rule entry.
type RuleSpec struct {
	Qty      string
	Optional bool
	Group    *string
}

// ParseKey splits a "roomType|finishLevel" rule key and validates both
// halves against the intake enums.
func ParseKey(key string) (requirementsdomain.RoomType, requirementsdomain.FinishLevel, error) {
	parts := strings.Split(key, "|")
	if len(parts) != 2 {
		return "", "", ErrInvalidKey
	}
	room := requirementsdomain.RoomType(parts[0])
	finish := requirementsdomain.FinishLevel(parts[1])
	if !requirementsdomain.ValidRoomType(room) || !requirementsdomain.ValidFinishLevel(finish) {
		return "", "", ErrInvalidKey
	}
	return room, finish, nil
}

// ParseRuleSpec reads one rule entry. A bare string is a quantity
// expression for a mandatory line; the object form adds optionality
// and an option group.
func ParseRuleSpec(raw any) (RuleSpec, error) {
	switch v := raw.(type) {
	case string:
		expr := strings.TrimSpace(v)
		if expr == "" {
			return RuleSpec{}, fmt.Errorf("%w: empty expression", ErrInvalidRules)
		}
		return RuleSpec{Qty: expr}, nil

	case map[string]any:
		for field := range v {
			switch field {
			case "qty", "optional", "group":
			default:
				return RuleSpec{}, fmt.Errorf("%w: unknown field %q", ErrInvalidRules, field)
			}
		}

		expr, ok := v["qty"].(string)
		if !ok || strings.TrimSpace(expr) == "" {
			return RuleSpec{}, fmt.Errorf("%w: missing qty expression", ErrInvalidRules)
		}
		spec := RuleSpec{Qty: strings.TrimSpace(expr)}

		if optional, ok := v["optional"]; ok {
			b, ok := optional.(bool)
			if !ok {
				return RuleSpec{}, fmt.Errorf("%w: optional must be a boolean", ErrInvalidRules)
			}
			spec.Optional = b
		}
		if group, ok := v["group"]; ok {
			g, ok := group.(string)
			if !ok {
				return RuleSpec{}, fmt.Errorf("%w: group must be a string", ErrInvalidRules)
			}
			g = strings.TrimSpace(g)
			if g != "" {
				spec.Group = &g
			}
		}
		return spec, nil

	default:
		return RuleSpec{}, fmt.Errorf("%w: entry must be a string or an object", ErrInvalidRules)
	}
}

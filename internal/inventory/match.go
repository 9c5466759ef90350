package inventory

import (
	"fmt"
	"strings"
)

// MatchPolicy decides which inventory item, if any, a line draws from.
// A nil item with a nil error means the line is not inventory-backed.
// An *AmbiguousMatchError is a soft result; any other error is fatal.
type MatchPolicy interface {
	Name() string
	Match(line Line, catalog []Item) (*Item, error)
}

// ExplicitPolicy only honours references recorded when the line was added
// from stock.
type ExplicitPolicy struct{}

func (ExplicitPolicy) Name() string { return "explicit" }

func (ExplicitPolicy) Match(line Line, catalog []Item) (*Item, error) {
	if line.Ref == nil {
		return nil, nil
	}

	for i := range catalog {
		if catalog[i].ID == line.Ref.ItemID {
			return &catalog[i], nil
		}
	}

	return nil, fmt.Errorf("unknown inventory item %s", line.Ref.ItemID)
}

// FallbackPolicy honours explicit references and otherwise links a line to
// the single item whose name and unit cost equal the line's description and
// unit price. Lines converted from estimates lose their reference, this is
// how they find their stock again.
type FallbackPolicy struct{}

func (FallbackPolicy) Name() string { return "fallback" }

func (FallbackPolicy) Match(line Line, catalog []Item) (*Item, error) {
	if line.Ref != nil {
		return ExplicitPolicy{}.Match(line, catalog)
	}

	var found []*Item

	for i := range catalog {
		if catalog[i].Name == line.Description && catalog[i].UnitCost.Equal(line.UnitPrice) {
			found = append(found, &catalog[i])
		}
	}

	switch len(found) {
	case 0:
		return nil, nil
	case 1:
		return found[0], nil
	}

	amb := &AmbiguousMatchError{Description: line.Description, UnitPrice: line.UnitPrice}
	for _, it := range found {
		amb.Candidates = append(amb.Candidates, it.ID)
	}

	return nil, amb
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fallback":
		return FallbackPolicy{}, nil
	case "explicit":
		return ExplicitPolicy{}, nil
	}

	return nil, fmt.Errorf("unknown match policy %q", name)
}

// Resolution is the outcome of matching a document's lines.
type Resolution struct {
	Requirements Requirements
	Ambiguous    []*AmbiguousMatchError

	// Matched holds the item each line resolved to, nil for untracked lines.
	Matched []*Item
}

type Matcher struct {
	policy MatchPolicy
}

func NewMatcher(policy MatchPolicy) *Matcher {
	if policy == nil {
		policy = FallbackPolicy{}
	}

	return &Matcher{policy: policy}
}

func (m *Matcher) Policy() MatchPolicy { return m.policy }

// Resolve matches every line against the catalog and sums the quantities
// drawn per item.
func (m *Matcher) Resolve(lines []Line, catalog []Item) (*Resolution, error) {
	res := &Resolution{Requirements: Requirements{}, Matched: make([]*Item, len(lines))}

	for i, line := range lines {
		item, err := m.policy.Match(line, catalog)
		if err != nil {
			if amb, ok := err.(*AmbiguousMatchError); ok {
				res.Ambiguous = append(res.Ambiguous, amb)
				continue
			}

			return nil, &MatchError{Line: i, Reason: err.Error()}
		}

		if item == nil {
			continue
		}

		if !line.Quantity.IsInteger() {
			return nil, &MatchError{Line: i, Reason: fmt.Sprintf("stocked item %q needs a whole quantity, got %s", item.Name, line.Quantity)}
		}

		matched := *item
		res.Matched[i] = &matched
		res.Requirements.add(item.ID, line.Quantity.IntPart())
	}

	return res, nil
}

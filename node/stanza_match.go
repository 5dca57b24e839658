package node

// Reports whether s matches target.
//
// In exact mode the two trees must be structurally equal: same name,
// same attribute set (order is ignored), same content and pairwise
// equal children in order.
//
// Otherwise s only has to contain target: every attribute and child
// present in target must be present and equal in s, extras are ignored.
// Content is only compared when target has some.
func (s *Stanza) Matches(target *Stanza, exact bool) bool {
	if s == nil || target == nil {
		return s == target
	}
	if exact {
		return exactMatch(s, target)
	}
	return subsetMatch(s, target)
}

func exactMatch(candidate *Stanza, target *Stanza) bool {
	if candidate.Name != target.Name || candidate.Content != target.Content {
		return false
	}
	if candidate.AttrCount() != target.AttrCount() || !hasAttributes(candidate, target) {
		return false
	}
	if len(candidate.Children) != len(target.Children) {
		return false
	}
	for i := range target.Children {
		if !exactMatch(candidate.Children[i], target.Children[i]) {
			return false
		}
	}
	return true
}

func subsetMatch(candidate *Stanza, target *Stanza) bool {
	if candidate.Name != target.Name {
		return false
	}
	if target.Content != "" && candidate.Content != target.Content {
		return false
	}
	if !hasAttributes(candidate, target) {
		return false
	}
	// Each target child claims a distinct candidate child
	used := make([]bool, len(candidate.Children))
	return assignChildren(candidate.Children, target.Children, used)
}

// Finds an assignment of wanted children to unused candidate children,
// trying the next candidate whenever a later child cannot be placed.
func assignChildren(have []*Stanza, want []*Stanza, used []bool) bool {
	if len(want) == 0 {
		return true
	}
	for i, child := range have {
		if used[i] || !subsetMatch(child, want[0]) {
			continue
		}
		used[i] = true
		if assignChildren(have, want[1:], used) {
			return true
		}
		used[i] = false
	}
	return false
}

// True if every attribute of target is present in candidate with the same value.
func hasAttributes(candidate *Stanza, target *Stanza) bool {
	for k, v := range target.AllAttrs() {
		if have, ok := candidate.Attr(k); !ok || have != v {
			return false
		}
	}
	return true
}

package similarity

import "strings"

// techMatcher detects mentions of mutually exclusive technologies.
// Two queries naming different members of the same group can never be
// cache-equivalent, however close their wording.
type techMatcher struct {
	groups [][]string
}

func newTechMatcher(groups [][]string) *techMatcher {
	return &techMatcher{groups: groups}
}

// mentions returns, per group index, the set of members named in the
// normalized text.
func (m *techMatcher) mentions(normalized string) map[int]map[string]bool {
	padded := " " + normalized + " "
	found := make(map[int]map[string]bool)
	for gi, group := range m.groups {
		for _, member := range group {
			if strings.Contains(padded, " "+member+" ") {
				if found[gi] == nil {
					found[gi] = make(map[string]bool)
				}
				found[gi][member] = true
			}
		}
	}
	return found
}

// conflict reports whether the two texts name disjoint members of the
// same exclusive group.
func (m *techMatcher) conflict(a, b string) (bool, string) {
	ma := m.mentions(a)
	mb := m.mentions(b)
	for gi, membersA := range ma {
		membersB, ok := mb[gi]
		if !ok {
			continue
		}
		shared := false
		for member := range membersA {
			if membersB[member] {
				shared = true
				break
			}
		}
		if !shared {
			return true, describeConflict(membersA, membersB)
		}
	}
	return false, ""
}

func describeConflict(a, b map[string]bool) string {
	return firstKey(a) + " vs " + firstKey(b)
}

func firstKey(set map[string]bool) string {
	best := ""
	for k := range set {
		if best == "" || k < best {
			best = k
		}
	}
	return best
}

// Package feasibility computes the per-day go/no-go verdict for a poll. It
// is a pure predicate over response sets and the configured policy, with no
// chat-platform or storage dependency, so the quorum rules stay unit-testable
// in isolation.
//
// Two policies exist:
//
//   - GroupSubset: a session can run on a day only if every member of the
//     tracked group has explicitly said yes for that day. Silence counts as
//     unavailable.
//   - Threshold: a session can run on a day once at least Min users said yes
//     for it.
//
// The choice between them is a type-level decision made by Resolve, not a
// runtime branch buried in the evaluator: an empty or unresolvable group
// must fall back to the threshold rule (an empty set would otherwise be a
// vacuous subset of anything and report every day as feasible), and that
// fallback is reported as degraded so a permission or configuration problem
// does not masquerade as ordinary infeasibility.
package feasibility

import "sort"

// Policy selects the quorum rule for a poll. It is a closed set: GroupSubset
// or Threshold.
type Policy interface {
	isPolicy()
}

// GroupSubset requires every tracked member to have said yes for the day.
type GroupSubset struct {
	GroupID string
	Members []string // resolved member ids, non-empty by construction
}

func (GroupSubset) isPolicy() {}

// Threshold requires at least Min yes-votes for the day.
type Threshold struct {
	Min int
}

func (Threshold) isPolicy() {}

// Resolve picks the policy for a poll. groupID is the configured tracked
// group ("" when none), members its resolved membership. A configured group
// whose membership came back empty or unresolvable degrades to the threshold
// rule, flagged so callers can surface it.
func Resolve(groupID string, members []string, minPlayers int) (Policy, bool) {
	if groupID == "" {
		return Threshold{Min: minPlayers}, false
	}
	if len(members) == 0 {
		return Threshold{Min: minPlayers}, true
	}
	return GroupSubset{GroupID: groupID, Members: members}, false
}

// Day is the verdict for a single candidate day.
type Day struct {
	Feasible bool
	YesCount int
	// Missing lists tracked members who have not said yes for the day,
	// sorted for deterministic rendering. Empty under Threshold.
	Missing []string
}

// Result pairs the verdicts of the two candidate days. The days are
// independent; there is no cross-day coupling.
type Result struct {
	DayA Day
	DayB Day
}

// Evaluate applies policy to the two yes-sets (user ids that said yes for
// each day).
func Evaluate(policy Policy, yesA, yesB []string) Result {
	return Result{
		DayA: evaluateDay(policy, yesA),
		DayB: evaluateDay(policy, yesB),
	}
}

func evaluateDay(policy Policy, yes []string) Day {
	set := make(map[string]struct{}, len(yes))
	for _, id := range yes {
		set[id] = struct{}{}
	}
	d := Day{YesCount: len(set)}

	switch p := policy.(type) {
	case GroupSubset:
		for _, m := range p.Members {
			if _, ok := set[m]; !ok {
				d.Missing = append(d.Missing, m)
			}
		}
		sort.Strings(d.Missing)
		d.Feasible = len(d.Missing) == 0
	case Threshold:
		d.Feasible = len(set) >= p.Min
	}
	return d
}

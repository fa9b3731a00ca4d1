package feasibility

import (
	"reflect"
	"testing"
)

func TestResolve(t *testing.T) {
	p, degraded := Resolve("", nil, 3)
	if _, ok := p.(Threshold); !ok || degraded {
		t.Fatalf("no group: got %T degraded=%v, want Threshold false", p, degraded)
	}

	p, degraded = Resolve("g1", nil, 3)
	if _, ok := p.(Threshold); !ok || !degraded {
		t.Fatalf("empty group: got %T degraded=%v, want Threshold true", p, degraded)
	}

	p, degraded = Resolve("g1", []string{"u1"}, 3)
	if _, ok := p.(GroupSubset); !ok || degraded {
		t.Fatalf("resolved group: got %T degraded=%v, want GroupSubset false", p, degraded)
	}
}

func TestEvaluate_Threshold(t *testing.T) {
	r := Evaluate(Threshold{Min: 2}, []string{"u1", "u2"}, []string{"u1"})
	if !r.DayA.Feasible || r.DayA.YesCount != 2 {
		t.Fatalf("day A = %+v, want feasible with 2", r.DayA)
	}
	if r.DayB.Feasible || r.DayB.YesCount != 1 {
		t.Fatalf("day B = %+v, want infeasible with 1", r.DayB)
	}
}

func TestEvaluate_ThresholdDeduplicatesVoters(t *testing.T) {
	r := Evaluate(Threshold{Min: 2}, []string{"u1", "u1", "u1"}, nil)
	if r.DayA.Feasible || r.DayA.YesCount != 1 {
		t.Fatalf("day A = %+v, duplicate ids must count once", r.DayA)
	}
}

func TestEvaluate_GroupSubset(t *testing.T) {
	policy := GroupSubset{GroupID: "g1", Members: []string{"u1", "u2", "u3"}}

	r := Evaluate(policy, []string{"u1", "u2", "u3"}, []string{"u3", "u1"})
	if !r.DayA.Feasible || len(r.DayA.Missing) != 0 {
		t.Fatalf("day A = %+v, want feasible with nobody missing", r.DayA)
	}
	if r.DayB.Feasible {
		t.Fatalf("day B = %+v, want infeasible while u2 is silent", r.DayB)
	}
	if !reflect.DeepEqual(r.DayB.Missing, []string{"u2"}) {
		t.Fatalf("day B missing = %v, want [u2]", r.DayB.Missing)
	}
}

func TestEvaluate_GroupSubsetMissingSorted(t *testing.T) {
	policy := GroupSubset{GroupID: "g1", Members: []string{"zed", "amy", "bob"}}

	r := Evaluate(policy, nil, nil)
	want := []string{"amy", "bob", "zed"}
	if !reflect.DeepEqual(r.DayA.Missing, want) {
		t.Fatalf("missing = %v, want sorted %v", r.DayA.Missing, want)
	}
}

func TestEvaluate_NonMemberYesDoesNotSatisfySubset(t *testing.T) {
	policy := GroupSubset{GroupID: "g1", Members: []string{"u1", "u2"}}

	// An outsider's yes raises the count but cannot stand in for a member.
	r := Evaluate(policy, []string{"u1", "outsider"}, nil)
	if r.DayA.Feasible {
		t.Fatalf("day A = %+v, want infeasible while u2 is silent", r.DayA)
	}
	if r.DayA.YesCount != 2 {
		t.Fatalf("yes count = %d, want 2", r.DayA.YesCount)
	}
}

func TestEvaluate_DaysIndependent(t *testing.T) {
	policy := Threshold{Min: 1}
	r := Evaluate(policy, nil, []string{"u9"})
	if r.DayA.Feasible || !r.DayB.Feasible {
		t.Fatalf("got %+v, days must be evaluated independently", r)
	}
}

package telegram

import (
	"strings"
	"testing"
	"time"

	"sessionbot/internal/services"
)

func sampleView() services.PollView {
	return services.PollView{
		Deadline: time.Date(2026, 9, 2, 18, 0, 0, 0, time.UTC),
		Location: time.UTC,
		DayA: services.DayView{
			Label:    "Saturday",
			Date:     time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC),
			Names:    []string{"Alice", "Bob"},
			YesCount: 2,
			Feasible: true,
		},
		DayB: services.DayView{
			Label: "Sunday",
			Date:  time.Date(2026, 9, 6, 0, 0, 0, 0, time.UTC),
		},
		HasRoster:  true,
		Pending:    []string{"Cara"},
		MinPlayers: 3,
	}
}

func TestRenderPoll_OpenPoll(t *testing.T) {
	out := renderPoll(sampleView())

	for _, want := range []string{
		"Saturday Sep 5",
		"2 yes",
		"Alice, Bob",
		"no one yet",
		"Waiting on: Cara",
		"Wednesday, Sep 2 at 18:00",
		"Tap a button",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered poll missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Poll closed") {
		t.Fatalf("open poll rendered as closed")
	}
}

func TestRenderPoll_ClosedAndDegraded(t *testing.T) {
	view := sampleView()
	view.Closed = true
	view.Degraded = true
	view.HasRoster = false
	view.Pending = nil

	out := renderPoll(view)
	if !strings.Contains(out, "Poll closed") {
		t.Fatalf("closed marker missing:\n%s", out)
	}
	if !strings.Contains(out, "falling back to the player minimum") {
		t.Fatalf("degraded warning missing:\n%s", out)
	}
	if !strings.Contains(out, "3 players") {
		t.Fatalf("threshold footer missing:\n%s", out)
	}
	if strings.Contains(out, "Tap a button") {
		t.Fatalf("closed poll still invites votes")
	}
}

func TestRecommend(t *testing.T) {
	base := sampleView()

	cases := []struct {
		name             string
		aFeasible, bFeas bool
		aYes, bYes       int
		want             string
	}{
		{"neither", false, false, 1, 1, "Neither day"},
		{"only A", true, false, 3, 1, "Saturday works"},
		{"only B", false, true, 1, 3, "Sunday works"},
		{"B better", true, true, 3, 4, "Sunday has better availability"},
		{"A better", true, true, 4, 3, "Saturday has better availability"},
		{"tie", true, true, 3, 3, "Both days work equally well"},
	}
	for _, tc := range cases {
		v := base
		v.DayA.Feasible, v.DayB.Feasible = tc.aFeasible, tc.bFeas
		v.DayA.YesCount, v.DayB.YesCount = tc.aYes, tc.bYes
		got := recommend(v)
		if !strings.Contains(got, tc.want) {
			t.Errorf("%s: recommend = %q, want mention of %q", tc.name, got, tc.want)
		}
	}
}

func TestVoteFlags_CoverKeyboard(t *testing.T) {
	kb := voteKeyboard()
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData == nil {
				t.Fatalf("button %q has no callback data", btn.Text)
			}
			if _, ok := voteFlags[*btn.CallbackData]; !ok {
				t.Errorf("callback %q has no flag mapping", *btn.CallbackData)
			}
			if _, ok := voteAck[*btn.CallbackData]; !ok {
				t.Errorf("callback %q has no ack text", *btn.CallbackData)
			}
		}
	}

	if f := voteFlags[cbVoteBoth]; !f[0] || !f[1] {
		t.Fatalf("both = %v", f)
	}
	if f := voteFlags[cbVoteDayA]; !f[0] || f[1] {
		t.Fatalf("day a = %v", f)
	}
	if f := voteFlags[cbVoteNeither]; f[0] || f[1] {
		t.Fatalf("neither = %v", f)
	}
}

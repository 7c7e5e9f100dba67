package app

import (
	"testing"
	"time"

	"livequiz-service/internal/domain"
)

func TestRunningScoreRounding(t *testing.T) {
	cases := []struct {
		correct, budget, questions, want int
	}{
		{3, 100, 4, 75},
		{1, 100, 2, 50},
		{2, 100, 2, 100},
		{0, 100, 4, 0},
		{1, 100, 3, 33},
		{2, 100, 3, 67},
		{1, 50, 4, 13}, // 12.5 rounds up
		{0, 100, 0, 0},
	}
	for _, tc := range cases {
		if got := runningScore(tc.correct, tc.budget, tc.questions); got != tc.want {
			t.Errorf("runningScore(%d,%d,%d) = %d, want %d", tc.correct, tc.budget, tc.questions, got, tc.want)
		}
	}
}

func TestPercentage(t *testing.T) {
	if got := percentage(1, 2); got != 50 {
		t.Fatalf("percentage(1,2) = %d", got)
	}
	if got := percentage(2, 3); got != 67 {
		t.Fatalf("percentage(2,3) = %d", got)
	}
}

func TestFinalStandingsOrdering(t *testing.T) {
	participants := map[string]*domain.Participant{
		"slow": {
			ID: "slow", Name: "Slow", CorrectCount: 2,
			Answers: map[string]domain.Answer{
				"q1": {Latency: 8 * time.Second},
				"q2": {Latency: 6 * time.Second},
			},
		},
		"fast": {
			ID: "fast", Name: "Fast", CorrectCount: 2,
			Answers: map[string]domain.Answer{
				"q1": {Latency: 2 * time.Second},
				"q2": {Latency: 2 * time.Second},
			},
		},
		"top": {
			ID: "top", Name: "Top", CorrectCount: 3,
			Answers: map[string]domain.Answer{
				"q1": {Latency: 9 * time.Second},
			},
		},
		"gone": {
			ID: "gone", Name: "Gone", CorrectCount: 3, Kicked: true,
			Answers: map[string]domain.Answer{},
		},
	}

	standings := finalStandings(participants, 100, 4, 50)
	if len(standings) != 3 {
		t.Fatalf("kicked participant must be excluded, got %d entries", len(standings))
	}
	if standings[0].ParticipantID != "top" {
		t.Fatalf("highest correct count first, got %s", standings[0].ParticipantID)
	}
	// Equal correct counts: faster mean latency ranks higher.
	if standings[1].ParticipantID != "fast" || standings[2].ParticipantID != "slow" {
		t.Fatalf("latency tie-break wrong: %s then %s", standings[1].ParticipantID, standings[2].ParticipantID)
	}

	if standings[0].FinalScore != 75 || standings[0].Percentage != 75 || !standings[0].Passed {
		t.Fatalf("top standing wrong: %+v", standings[0])
	}
	if standings[1].FinalScore != 50 || !standings[1].Passed {
		t.Fatalf("fast standing wrong: %+v", standings[1])
	}
}

func TestOptionDistributionExcludesKicked(t *testing.T) {
	q := domain.Question{ID: "q1", Options: []string{"a", "b"}}
	participants := map[string]*domain.Participant{
		"p1": {ID: "p1", Answers: map[string]domain.Answer{"q1": {OptionIndex: 0}}},
		"p2": {ID: "p2", Answers: map[string]domain.Answer{"q1": {OptionIndex: 1}}},
		"p3": {ID: "p3", Kicked: true, Answers: map[string]domain.Answer{"q1": {OptionIndex: 1}}},
		"p4": {ID: "p4", Answers: map[string]domain.Answer{}},
	}
	dist := optionDistribution(q, participants)
	if dist[0] != 1 || dist[1] != 1 {
		t.Fatalf("distribution wrong: %v", dist)
	}
}

func TestMultiCorrectQuestion(t *testing.T) {
	q := domain.Question{
		ID:             "q1",
		Options:        []string{"4", "5", "6", "7"},
		CorrectOptions: []int{1, 3},
	}
	if !q.IsCorrect(1) || !q.IsCorrect(3) {
		t.Fatalf("both correct options must count")
	}
	if q.IsCorrect(0) || q.IsCorrect(2) {
		t.Fatalf("wrong options must not count")
	}
}

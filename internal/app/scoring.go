package app

import (
	"math"
	"sort"
	"time"

	"livequiz-service/internal/domain"
)

// Pure scoring and stats helpers. Nothing here mutates session state; the
// engine passes snapshots in and broadcasts the results.

// runningScore maps a correct-answer count onto the quiz's score budget,
// rounded to the nearest integer.
func runningScore(correctCount, budget, questionCount int) int {
	if questionCount == 0 {
		return 0
	}
	return int(math.Round(float64(correctCount) * float64(budget) / float64(questionCount)))
}

// percentage is the participant's correct ratio as a rounded percent.
func percentage(correctCount, questionCount int) int {
	if questionCount == 0 {
		return 0
	}
	return int(math.Round(float64(correctCount) / float64(questionCount) * 100))
}

// optionDistribution counts recorded answers per option for one question.
// Kicked participants are excluded from aggregates.
func optionDistribution(q domain.Question, participants map[string]*domain.Participant) []int {
	dist := make([]int, len(q.Options))
	for _, p := range participants {
		if p.Kicked {
			continue
		}
		answer, ok := p.Answers[q.ID]
		if !ok {
			continue
		}
		if answer.OptionIndex >= 0 && answer.OptionIndex < len(dist) {
			dist[answer.OptionIndex]++
		}
	}
	return dist
}

// answeredCount counts non-kicked participants with a recorded answer for the
// question.
func answeredCount(questionID string, participants map[string]*domain.Participant) int {
	n := 0
	for _, p := range participants {
		if p.Kicked {
			continue
		}
		if _, ok := p.Answers[questionID]; ok {
			n++
		}
	}
	return n
}

// activeCount is the roster size excluding kicked participants.
func activeCount(participants map[string]*domain.Participant) int {
	n := 0
	for _, p := range participants {
		if !p.Kicked {
			n++
		}
	}
	return n
}

// meanLatency averages a participant's recorded response latencies.
// Participants with no answers sort last on latency ties.
func meanLatency(p *domain.Participant) time.Duration {
	if len(p.Answers) == 0 {
		return time.Duration(math.MaxInt64)
	}
	var total time.Duration
	for _, a := range p.Answers {
		total += a.Latency
	}
	return total / time.Duration(len(p.Answers))
}

// finalStandings ranks non-kicked participants: correct count descending,
// then mean response latency ascending (faster wins ties), then name.
func finalStandings(participants map[string]*domain.Participant, budget, questionCount, passThresholdPercent int) []domain.Standing {
	ranked := make([]*domain.Participant, 0, len(participants))
	for _, p := range participants {
		if !p.Kicked {
			ranked = append(ranked, p)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].CorrectCount != ranked[j].CorrectCount {
			return ranked[i].CorrectCount > ranked[j].CorrectCount
		}
		li, lj := meanLatency(ranked[i]), meanLatency(ranked[j])
		if li != lj {
			return li < lj
		}
		return ranked[i].Name < ranked[j].Name
	})

	standings := make([]domain.Standing, 0, len(ranked))
	for _, p := range ranked {
		pct := percentage(p.CorrectCount, questionCount)
		standings = append(standings, domain.Standing{
			ParticipantID: p.ID,
			Name:          p.Name,
			CorrectCount:  p.CorrectCount,
			FinalScore:    runningScore(p.CorrectCount, budget, questionCount),
			Percentage:    pct,
			Passed:        pct >= passThresholdPercent,
		})
	}
	return standings
}

package app

import (
	"math"
	"sort"

	"livequiz-service/internal/domain"
)

// Leaderboard aggregates answer history into ranked standings. Sorting is
// score descending with ties broken by faster average response time; the
// sort is stable so equal entries keep their incoming order.
func Leaderboard(participants []domain.SessionParticipant, answers []domain.QuizAnswer) []domain.LeaderboardEntry {
	byParticipant := make(map[string][]domain.QuizAnswer, len(participants))
	for _, a := range answers {
		byParticipant[a.ParticipantID] = append(byParticipant[a.ParticipantID], a)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		entry := domain.LeaderboardEntry{
			ParticipantID: p.ID,
			UserID:        p.UserID,
			DisplayName:   p.DisplayName,
			TotalScore:    p.TotalScore,
		}
		var totalTime float64
		for _, a := range byParticipant[p.ID] {
			entry.TotalAnswers++
			if a.IsCorrect {
				entry.CorrectAnswers++
			}
			totalTime += a.TimeTaken
		}
		if entry.TotalAnswers > 0 {
			entry.AverageTime = round2(totalTime / float64(entry.TotalAnswers))
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].AverageTime < entries[j].AverageTime
	})
	return entries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

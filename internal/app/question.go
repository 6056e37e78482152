package app

import (
	"math/rand"

	"livequiz-service/internal/domain"
)

// PlayableQuestion converts a question into its broadcast form: the correct
// answer is stripped and, when the question asks for it, the options are
// shuffled with Fisher-Yates. The original question is never mutated.
func PlayableQuestion(q domain.Question, index, total int) domain.QuestionPayload {
	options := make([]string, len(q.Options))
	copy(options, q.Options)
	if q.RandomizeOptions {
		shuffle(options)
	}
	return domain.QuestionPayload{
		QuestionID: q.ID,
		Text:       q.Text,
		Type:       q.Type,
		Options:    options,
		TimeLimit:  q.TimeLimit,
		Index:      index,
		Total:      total,
	}
}

func shuffle(options []string) {
	for i := len(options) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		options[i], options[j] = options[j], options[i]
	}
}

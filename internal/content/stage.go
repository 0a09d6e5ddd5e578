package content

import (
	"context"

	"ordkort/internal/ratelimit"
)

// CardGenerator produces an enriched card for one word
type CardGenerator interface {
	Generate(ctx context.Context, word string) (*Card, error)
}

// Stage runs card generation under the retry policy. All model calls
// go through the policy under the "content" kind.
type Stage struct {
	generator CardGenerator
	policy    *ratelimit.Policy
}

// NewStage creates a content stage
func NewStage(generator CardGenerator, policy *ratelimit.Policy) *Stage {
	return &Stage{
		generator: generator,
		policy:    policy,
	}
}

// Generate produces the card for word, retrying transient and throttled
// failures within the policy's attempt budget
func (s *Stage) Generate(ctx context.Context, word string) (*Card, error) {
	var card *Card
	err := s.policy.Do(ctx, "content", func(ctx context.Context) error {
		var genErr error
		card, genErr = s.generator.Generate(ctx, word)
		return genErr
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

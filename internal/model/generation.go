package model

import "context"

// Generator is the language-model collaborator. Implementations must wrap every
// failure in ErrGenerationFailed.
type Generator interface {
	Interpretation(ctx context.Context, prompt PromptContext) (string, error)
	ColorName(ctx context.Context, dreamText string) (string, error)
	ProfileSummary(ctx context.Context, kind SummaryKind, profile Profile) (string, error)
	PremiumInterpretation(ctx context.Context, prompt PremiumPromptContext) (string, error)
}

// PromptContext carries what a free interpretation is generated from.
type PromptContext struct {
	DreamText string
	Birthdate string
	MBTI      string
}

// PremiumPromptContext carries what a premium interpretation is generated from.
type PremiumPromptContext struct {
	DreamText   string
	MBTISummary string
	SajuSummary string
}

// SummaryKind selects which secondary profile summary to generate.
type SummaryKind string

const (
	SummaryMBTI SummaryKind = "mbti"
	SummarySaju SummaryKind = "saju"
)

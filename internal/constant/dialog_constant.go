package constant

const (
	IntentOpenQuestion = "open_question"
	IntentClarify      = "clarify"
	IntentRiskCheck    = "risk_check"
	IntentRapport      = "rapport"

	AvailabilityPublic = "public"
	AvailabilityGated  = "gated"
	AvailabilityHidden = "hidden"

	RiskStatusNone  = "none"
	RiskStatusAcute = "acute"

	RiskFlagSuicideIdeation = "suicide_ideation"

	AffectNeutral    = "neutral"
	AffectDistressed = "distressed"
	AffectTired      = "tired"

	RagModeMetadata = "metadata"
	RagModeVector   = "vector"

	// Reply produced when the generation stage is disabled or the upstream
	// model gives nothing usable. Keeps trainee tooling parseable.
	FallbackReplyFormat = "Plan:%d intent=%s risk=%s"

	// Content plan line used when the reasoning payload cannot be repaired.
	FallbackContentLine = "Мне сейчас сложно собраться с мыслями."

	// Summary shown back to supervisors; utterances are clipped to this.
	SummaryMaxLen = 200

	// In-process bus topic for async fragment embedding backfill.
	TopicFragmentEmbed = "fragment.embed"
)

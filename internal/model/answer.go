package model

// Draft is a single model-generated answer draft.
type Draft struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model"`
}

// DecisionMode names which draft (or blend) the assembler should use.
type DecisionMode string

const (
	// DecisionGPTDraft keeps the knowledge draft untouched.
	DecisionGPTDraft DecisionMode = "gpt_draft"
	// DecisionWebOverride replaces conflicting sections with the web draft.
	DecisionWebOverride DecisionMode = "web_override"
	// DecisionHybrid keeps the knowledge draft and appends a caution note.
	DecisionHybrid DecisionMode = "hybrid"
)

// Conflict describes one detected disagreement between the two drafts.
type Conflict struct {
	Category    string  `json:"category"` // numeric, legal_citation, evidence_omission, interpretive
	Description string  `json:"description"`
	Severity    float64 `json:"severity"`
}

// ConflictAnalysis is the full output of the conflict resolver.
type ConflictAnalysis struct {
	ConflictScore      float64      `json:"conflict_score"`
	RuleScore          float64      `json:"rule_score"`
	NLIScore           float64      `json:"nli_score"`
	Conflicts          []Conflict   `json:"conflicts"`
	DecisiveWebSources []string     `json:"decisive_web_sources,omitempty"`
	DecisionMode       DecisionMode `json:"decision_mode"`
}

// AnswerSections holds the five canonical answer sections, body text only.
type AnswerSections struct {
	Overview       string `json:"overview"`
	TaxRates       string `json:"tax_rates"`
	Considerations string `json:"considerations"`
	LegalBasis     string `json:"legal_basis"`
	Conclusion     string `json:"conclusion"`
}

// FinalAnswer is the assembled answer returned to callers.
type FinalAnswer struct {
	Text       string         `json:"text"`
	Sections   AnswerSections `json:"sections"`
	Decision   DecisionMode   `json:"decision"`
	TokensUsed int            `json:"tokens_used"`
	Model      string         `json:"model"`
}

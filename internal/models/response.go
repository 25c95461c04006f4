package models

// Finish reasons reported by the API
const (
	FinishReasonStop      = "STOP"
	FinishReasonMaxTokens = "MAX_TOKENS"
	FinishReasonSafety    = "SAFETY"
)

// blockingFinishReasons end a candidate without usable content
var blockingFinishReasons = map[string]bool{
	FinishReasonSafety:   true,
	"RECITATION":         true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

// IsBlockingFinishReason reports whether the finish reason means the response was withheld
func IsBlockingFinishReason(reason string) bool {
	return blockingFinishReasons[reason]
}

// UsageMetadata reports token accounting for a response
type UsageMetadata struct {
	PromptTokens    int
	CandidateTokens int
	TotalTokens     int
}

// Package scorer grades audit submissions for compliance completeness.
// Scoring never fails: every error path produces a zero score with an
// explanatory summary.
package scorer

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"path"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	MinScore = 0
	MaxScore = 100
)

var (
	unconfiguredSummary  = []string{"Compliance scoring is not configured"}
	unconfiguredFeedback = []string{"Set scorer.api_key to enable AI auditing"}

	failedSummary  = []string{"Analysis failed"}
	failedFeedback = []string{"Check your connectivity or API key status"}
)

// Input is the request content that is graded. The same fields are hashed
// into the fingerprint that binds a score to the submission.
type Input struct {
	Title          string   `json:"title"`
	Category       string   `json:"category"`
	CustomCategory string   `json:"custom_category,omitempty"`
	Department     string   `json:"department"`
	Amount         Amount   `json:"total_amount"`
	Description    string   `json:"description"`
	AuditDate      string   `json:"audit_date"`
	Attachments    []string `json:"attachments,omitempty"`
}

// Amount accepts total_amount as a JSON number or a JSON string and keeps
// the literal text. It always encodes as a string.
type Amount string

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*a = Amount(n.String())
	return nil
}

// Assessment is what a backend returns for one input.
type Assessment struct {
	Score    int      `json:"completeness_score"`
	Summary  []string `json:"summary"`
	Feedback []string `json:"feedback"`
}

// Result is returned to clients. ScoreToken must accompany the submission.
type Result struct {
	CompletenessScore int      `json:"completeness_score"`
	Summary           []string `json:"summary"`
	Feedback          []string `json:"feedback"`
	Fingerprint       string   `json:"fingerprint"`
	ScoreToken        string   `json:"score_token"`
	Fallback          bool     `json:"fallback"`
}

// AttachmentNames returns the display name of every attachment path.
func (in Input) AttachmentNames() []string {
	names := make([]string, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		names = append(names, path.Base(a))
	}
	return names
}

// Fingerprint hashes a canonical form of the input. Whitespace, amount
// formatting and attachment order do not change the fingerprint.
func (in Input) Fingerprint() string {
	amount := strings.TrimSpace(string(in.Amount))
	if d, err := decimal.NewFromString(amount); err == nil {
		amount = d.String()
	}

	attachments := make([]string, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		attachments = append(attachments, strings.TrimSpace(a))
	}
	sort.Strings(attachments)

	canonical := Input{
		Title:          strings.TrimSpace(in.Title),
		Category:       strings.ToLower(strings.TrimSpace(in.Category)),
		CustomCategory: strings.TrimSpace(in.CustomCategory),
		Department:     strings.TrimSpace(in.Department),
		Amount:         Amount(amount),
		Description:    strings.TrimSpace(in.Description),
		AuditDate:      strings.TrimSpace(in.AuditDate),
		Attachments:    attachments,
	}

	// Marshalling a struct with only string fields cannot fail.
	raw, _ := json.Marshal(canonical)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func unconfiguredAssessment() Assessment {
	return Assessment{Score: 0, Summary: clone(unconfiguredSummary), Feedback: clone(unconfiguredFeedback)}
}

func failedAssessment() Assessment {
	return Assessment{Score: 0, Summary: clone(failedSummary), Feedback: clone(failedFeedback)}
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

package resumes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// KeyPrefix namespaces analysis records in the key-value store.
const KeyPrefix = "resume:"

// Key returns the storage key for a record id.
func Key(id string) string {
	return KeyPrefix + id
}

// IDFromKey strips KeyPrefix. ok is false for keys outside the namespace.
func IDFromKey(key string) (string, bool) {
	if !strings.HasPrefix(key, KeyPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(key, KeyPrefix)
	return id, id != ""
}

// Record is one analysis submission. Feedback is nil until the model replies.
type Record struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId,omitempty"`
	CompanyName    string    `json:"companyName,omitempty"`
	JobTitle       string    `json:"jobTitle,omitempty"`
	JobDescription string    `json:"jobDescription,omitempty"`
	CreatedAt      string    `json:"createdAt"`
	ResumePath     string    `json:"resumePath"`
	ImagePath      string    `json:"imagePath"`
	Feedback       *Feedback `json:"feedback"`
}

// HasFeedback reports whether the final write happened.
func (r Record) HasFeedback() bool {
	return r.Feedback != nil
}

// Encode serializes the record for the key-value store.
func Encode(r Record) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode record %s: %w", r.ID, err)
	}
	return string(b), nil
}

// Decode parses a stored record.
func Decode(value string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return r, nil
}

// TipType classifies a tip.
type TipType string

const (
	TipGood    TipType = "good"
	TipImprove TipType = "improve"
)

// Tip is one suggestion entry. ATS tips carry no explanation.
type Tip struct {
	Type        TipType `json:"type"`
	Tip         string  `json:"tip"`
	Explanation string  `json:"explanation,omitempty"`
}

// Category is a scored block of tips.
type Category struct {
	Score float64 `json:"score"`
	Tips  []Tip   `json:"tips"`
}

// Feedback is the structured model output.
type Feedback struct {
	OverallScore float64  `json:"overallScore"`
	ATS          Category `json:"ATS"`
	ToneAndStyle Category `json:"toneAndStyle"`
	Content      Category `json:"content"`
	Structure    Category `json:"structure"`
	Skills       Category `json:"skills"`
}

// CategoryNames lists the JSON keys of every category in display order.
var CategoryNames = []string{"ATS", "toneAndStyle", "content", "structure", "skills"}

// Categories returns the categories keyed like CategoryNames.
func (f *Feedback) Categories() map[string]*Category {
	return map[string]*Category{
		"ATS":          &f.ATS,
		"toneAndStyle": &f.ToneAndStyle,
		"content":      &f.Content,
		"structure":    &f.Structure,
		"skills":       &f.Skills,
	}
}

package resumes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	MinScore = 0
	MaxScore = 100
)

// ParseFeedback decodes model output. The payload must be a JSON object with at
// least one feedback field. With strict set, it must also contain every
// category and pass Validate.
func ParseFeedback(text string, strict bool) (*Feedback, error) {
	raw := bytes.TrimSpace([]byte(text))
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformedFeedback)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || keys == nil {
		return nil, fmt.Errorf("%w: payload is not a JSON object", ErrMalformedFeedback)
	}
	var fb Feedback
	if err := json.Unmarshal(raw, &fb); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeedback, err)
	}

	required := append([]string{"overallScore"}, CategoryNames...)
	present := 0
	for _, k := range required {
		if v, ok := keys[k]; ok && !bytes.Equal(v, []byte("null")) {
			present++
		} else if strict {
			return nil, fmt.Errorf("%w: %s is required", ErrMalformedFeedback, k)
		}
	}
	if present == 0 {
		return nil, fmt.Errorf("%w: no feedback fields", ErrMalformedFeedback)
	}
	if !strict {
		return &fb, nil
	}
	if err := fb.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFeedback, err)
	}
	return &fb, nil
}

// Validate checks score bounds and tip classifications.
func (f *Feedback) Validate() error {
	if f == nil {
		return errors.New("feedback is nil")
	}
	if !inRange(f.OverallScore) {
		return fmt.Errorf("overallScore must be between %d and %d", MinScore, MaxScore)
	}
	cats := f.Categories()
	for _, name := range CategoryNames {
		cat := cats[name]
		if !inRange(cat.Score) {
			return fmt.Errorf("%s.score must be between %d and %d", name, MinScore, MaxScore)
		}
		for i, tip := range cat.Tips {
			if tip.Type != TipGood && tip.Type != TipImprove {
				return fmt.Errorf("%s.tips[%d].type must be %q or %q", name, i, TipGood, TipImprove)
			}
		}
	}
	return nil
}

func inRange(score float64) bool {
	return score >= MinScore && score <= MaxScore
}

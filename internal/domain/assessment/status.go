package assessment

import (
	"encoding/json"
	"strings"
)

// Status is the assessed state of a criterion.
type Status string

const (
	StatusPositive Status = "positive"
	StatusNeutral  Status = "neutral"
	StatusAtRisk   Status = "at_risk"
	StatusUnknown  Status = "unknown"
)

// ParseStatus maps a source status token onto Status. The mapping is total:
// anything it does not recognise becomes StatusUnknown.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "positive":
		return StatusPositive
	case "neutral":
		return StatusNeutral
	case "at_risk", "at-risk", "atrisk", "at risk":
		return StatusAtRisk
	default:
		return StatusUnknown
	}
}

// UnmarshalJSON accepts any string and never fails on an unknown value.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		// null or a non-string value
		*s = StatusUnknown
		return nil
	}
	*s = ParseStatus(raw)
	return nil
}

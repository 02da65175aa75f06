// internal/models/supplier.go
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Candidate is a supplier being evaluated against an RFQ. Rating and
// IsVerified are optional; nil means the supplier never provided them.
type Candidate struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name,omitempty"`
	IndustryOrCategory string   `json:"industryOrCategory"`
	Rating             *float64 `json:"rating,omitempty"`
	IsVerified         *bool    `json:"isVerified,omitempty"`
}

// ScoredCandidate pairs a candidate with its match score in (0, 100].
type ScoredCandidate struct {
	Candidate Candidate `json:"candidate"`
	Score     float64   `json:"score"`
}

// RankedSupplier is the flattened form written back to the process.
type RankedSupplier struct {
	SupplierID string  `json:"supplierId"`
	Name       string  `json:"name,omitempty"`
	Score      float64 `json:"score"`
}

func ToRankedSuppliers(scored []ScoredCandidate) []RankedSupplier {
	out := make([]RankedSupplier, 0, len(scored))
	for _, sc := range scored {
		out = append(out, RankedSupplier{
			SupplierID: sc.Candidate.ID,
			Name:       sc.Candidate.Name,
			Score:      sc.Score,
		})
	}
	return out
}

// Float64Ptr and BoolPtr are helpers for building candidates with optional fields.
func Float64Ptr(v float64) *float64 { return &v }

func BoolPtr(v bool) *bool { return &v }

// UnmarshalJSON accepts the id as a JSON string or an integer and stores it
// as a string.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	type candidateFields Candidate
	var aux struct {
		candidateFields
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, err := parseCandidateID(aux.ID)
	if err != nil {
		return err
	}
	*c = Candidate(aux.candidateFields)
	c.ID = id
	return nil
}

func parseCandidateID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("candidate id must be a string or a number: %w", err)
	}
	return n.String(), nil
}

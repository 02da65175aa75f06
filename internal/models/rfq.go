// internal/models/rfq.go
package models

// MatchRequest is the buyer side of a match. Only IndustryOrCategory takes
// part in scoring; the remaining fields are carried for external providers.
type MatchRequest struct {
	RFQID              string `json:"rfqId,omitempty"`
	IndustryOrCategory string `json:"industryOrCategory"`
	Title              string `json:"title,omitempty"`
	Description        string `json:"description,omitempty"`
	Quantity           int    `json:"quantity,omitempty"`
	Location           string `json:"location,omitempty"`
}

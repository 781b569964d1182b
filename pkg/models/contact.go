package models

import "time"

// StructuredContact is the normalized business-card record produced by the
// field extractor. Every field is optional; lines that matched no rule are
// preserved in OtherInfo in their original order.
type StructuredContact struct {
	Name            string   `json:"name,omitempty" bson:"name,omitempty"`
	Title           string   `json:"title,omitempty" bson:"title,omitempty"`
	Company         string   `json:"company,omitempty" bson:"company,omitempty"`
	Phone           string   `json:"phone,omitempty" bson:"phone,omitempty"`
	Email           string   `json:"email,omitempty" bson:"email,omitempty"`
	Website         string   `json:"website,omitempty" bson:"website,omitempty"`
	Address         string   `json:"address,omitempty" bson:"address,omitempty"`
	OtherInfo       []string `json:"other_info,omitempty" bson:"other_info,omitempty"`
	ConfidenceScore float64  `json:"confidence_score" bson:"confidence_score"`
}

// StoredContact is a persisted contact record with provenance metadata.
type StoredContact struct {
	ID               string            `json:"id" bson:"_id,omitempty"`
	Contact          StructuredContact `json:"contact" bson:"contact"`
	Source           string            `json:"source" bson:"source"`
	ProcessingMethod string            `json:"processing_method,omitempty" bson:"processing_method,omitempty"`
	RawText          string            `json:"raw_text,omitempty" bson:"raw_text,omitempty"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at"`
}

package models

import (
	"fmt"
	"strings"
)

// AskRequest is the body of a question posted to the API.
type AskRequest struct {
	Query string `json:"query"`
}

// Validate rejects empty or blank input. The query itself is left as sent.
func (r *AskRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

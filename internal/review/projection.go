package review

import (
	"strings"

	"github.com/AurifyAE/Mac-and-Ro/internal/models"
)

// All disables a status or type criterion
const All = "all"

// Criteria selects the visible rows of a collection. Empty values behave like All.
type Criteria struct {
	Status    string `form:"status" json:"status"`
	Type      string `form:"type" json:"type"`
	FreeText  string `form:"q" json:"freeText"`
	SubjectID string `form:"customer" json:"subjectId"`
}

func (c Criteria) matches(e models.ReviewableEntity, needle string) bool {
	if c.Status != "" && c.Status != All && !strings.EqualFold(string(e.Status), c.Status) {
		return false
	}
	if c.Type != "" && c.Type != All && !strings.EqualFold(e.Type, c.Type) {
		return false
	}
	if c.SubjectID != "" && e.SubjectID != c.SubjectID && e.SubjectAltID != c.SubjectID {
		return false
	}
	if needle == "" {
		return true
	}
	for _, field := range []string{e.SubjectName, e.SubjectEmail, e.SubjectID, e.SubjectAltID} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Project returns the entities matching every criterion, in their original
// order. The input slice is never modified.
func Project(entities []models.ReviewableEntity, c Criteria) []models.ReviewableEntity {
	needle := strings.ToLower(strings.TrimSpace(c.FreeText))

	out := make([]models.ReviewableEntity, 0, len(entities))
	for _, e := range entities {
		if c.matches(e, needle) {
			out = append(out, e)
		}
	}
	return out
}

// Counts is the per-status badge row shown above a table
type Counts struct {
	Total    int                   `json:"total"`
	ByStatus map[models.Status]int `json:"byStatus"`
}

// Count tallies entities by status
func Count(entities []models.ReviewableEntity) Counts {
	c := Counts{Total: len(entities), ByStatus: make(map[models.Status]int)}
	for _, e := range entities {
		c.ByStatus[e.Status]++
	}
	return c
}

// Package workflow implements the publication workflow engine: the state
// machine that moves a document from a private draft, through review, into a
// shared team container, and back.
package workflow

import (
	"knowledgehub/backend/pkg/models"
)

// TransitionTable enforces document workflow status transitions
type TransitionTable struct {
	allowed map[models.WorkflowStatus][]models.WorkflowStatus
}

// NewTransitionTable creates the fixed transition table.
//
// in_review -> published is a shortcut taken only by Approve, which changes
// status and relocates the document in one step. published -> draft and
// archived -> draft let an administrator retract a document for rework
// without another review round. None of these edges are requestable
// directly; the engine exposes named operations only.
func NewTransitionTable() *TransitionTable {
	return &TransitionTable{
		allowed: map[models.WorkflowStatus][]models.WorkflowStatus{
			models.StatusDraft:            {models.StatusInReview},
			models.StatusInReview:         {models.StatusApproved, models.StatusChangesRequested, models.StatusDraft, models.StatusPublished},
			models.StatusChangesRequested: {models.StatusInReview, models.StatusDraft},
			models.StatusApproved:         {models.StatusPublished},
			models.StatusPublished:        {models.StatusArchived, models.StatusDraft},
			models.StatusArchived:         {models.StatusDraft},
		},
	}
}

// IsValidTransition checks whether a status transition is allowed
func (t *TransitionTable) IsValidTransition(from, to models.WorkflowStatus) bool {
	for _, next := range t.allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the allowed next statuses for a given status
func (t *TransitionTable) AllowedTransitions(from models.WorkflowStatus) []models.WorkflowStatus {
	return t.allowed[from]
}

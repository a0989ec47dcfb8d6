package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldline/casework-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TransitionMeta carries the optional payload of a status change: the reason
// on rejection edges and any extra column writes that must land with it.
type TransitionMeta struct {
	Reason string
	Fields map[string]interface{}
}

// applyCaseTransitionTx moves a case along one edge of the state machine
// inside the caller's transaction. Idempotent: a case already at the target
// is a no-op success (moved=false). A case at neither the expected nor the
// target status is a stale-state conflict; an undefined edge is an invalid
// transition. The status write is guarded on the expected status so a
// concurrent mover turns into a conflict, not a lost update.
func applyCaseTransitionTx(tx *gorm.DB, caseID uuid.UUID, fromExpected, to domain.CaseStatus, meta TransitionMeta) (moved bool, err error) {
	if !to.IsValid() {
		return false, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, to)
	}

	var c domain.Case
	if err := tx.First(&c, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to load case: %w", err)
	}

	if c.Status == to {
		return false, nil
	}
	if c.Status != fromExpected {
		return false, fmt.Errorf("%w: expected %s, found %s", ErrStaleState, fromExpected, c.Status)
	}
	if !domain.CanTransition(fromExpected, to) {
		return false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, fromExpected, to)
	}
	if domain.IsRejectionEdge(fromExpected, to) && meta.Reason == "" {
		return false, ErrReasonRequired
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	if meta.Reason != "" {
		updates["rejection_reason"] = meta.Reason
	}
	for k, v := range meta.Fields {
		updates[k] = v
	}

	result := tx.Model(&domain.Case{}).
		Where("id = ? AND status = ?", caseID, fromExpected).
		Updates(updates)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update case status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, fmt.Errorf("%w: case moved during transition", ErrStaleState)
	}

	return true, nil
}

// logActivityTx appends a case event inside the caller's transaction.
func logActivityTx(tx *gorm.DB, caseID uuid.UUID, actorID, actorName, title, body string) error {
	activity := &domain.Activity{
		CaseID:     caseID,
		Title:      title,
		Body:       body,
		ActorID:    actorID,
		ActorName:  actorName,
		OccurredAt: time.Now(),
	}
	return tx.Create(activity).Error
}

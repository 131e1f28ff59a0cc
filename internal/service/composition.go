package service

import (
	"context"
	"fmt"

	"reqdesk/internal/model"
	"reqdesk/internal/repository"
)

// MinAttachments is the lowest attachment floor a request may ever be held to.
const MinAttachments = 2

// CompositionValidator enforces the minimum attachment rule on a candidate id list.
type CompositionValidator struct {
	attachments repository.AttachmentRepository
	min         int
	strict      bool
}

// NewCompositionValidator builds a validator. With strict set, ids that do not resolve
// fail the whole call instead of being dropped before counting.
// A floor below MinAttachments is raised to it.
func NewCompositionValidator(attachments repository.AttachmentRepository, floor int, strict bool) *CompositionValidator {
	return &CompositionValidator{attachments: attachments, min: max(floor, MinAttachments), strict: strict}
}

// Validate resolves ids for the request identified by requestID (0 when it is being created)
// and returns the resolved attachments in the order they were first listed.
// Repeated ids count once.
func (v *CompositionValidator) Validate(ctx context.Context, requestID int64, ids []int64) ([]model.Attachment, error) {
	unique := dedupe(ids)

	found, err := v.attachments.FindAllByID(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve attachments: %w", err)
	}
	byID := make(map[int64]model.Attachment, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	resolved := make([]model.Attachment, 0, len(byID))
	missing := make([]int64, 0)
	for _, id := range unique {
		a, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		resolved = append(resolved, a)
	}

	if v.strict && len(missing) > 0 {
		return nil, invalid(ReasonUnresolvedAttachments,
			map[string]any{"missing": missing},
			"Attachments not found: %v", missing)
	}
	if len(resolved) < v.min {
		return nil, invalid(ReasonInsufficientAttachments,
			map[string]any{"required": v.min, "provided": len(resolved)},
			"At least %d attachments are required. Only %d provided.", v.min, len(resolved))
	}
	for _, a := range resolved {
		if a.BoundToOther(requestID) {
			return nil, invalid(ReasonAttachmentInUse,
				map[string]any{"attachmentId": a.ID, "requestId": *a.RequestID},
				"Attachment %d already belongs to request %d", a.ID, *a.RequestID)
		}
	}
	return resolved, nil
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

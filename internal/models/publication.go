package models

import "strings"

// ReviewStatus captures the editorial approval stage of a content item.
type ReviewStatus string

const (
	ReviewStatusDraft         ReviewStatus = "DRAFT"
	ReviewStatusPendingReview ReviewStatus = "PENDING_REVIEW"
	ReviewStatusApproved      ReviewStatus = "APPROVED"
	ReviewStatusRejected      ReviewStatus = "REJECTED"
)

// Valid reports whether the status is part of the enumeration.
func (s ReviewStatus) Valid() bool {
	switch s {
	case ReviewStatusDraft, ReviewStatusPendingReview, ReviewStatusApproved, ReviewStatusRejected:
		return true
	}
	return false
}

// ReviewAction enumerates the pipeline actions an admin can request.
type ReviewAction string

const (
	ReviewActionSubmit   ReviewAction = "SUBMIT"
	ReviewActionApprove  ReviewAction = "APPROVE"
	ReviewActionReject   ReviewAction = "REJECT"
	ReviewActionResubmit ReviewAction = "RESUBMIT"
	ReviewActionRevise   ReviewAction = "REVISE"
)

// ParseReviewAction normalises raw input into an enumerated action.
func ParseReviewAction(raw string) (ReviewAction, bool) {
	action := ReviewAction(strings.ToUpper(strings.TrimSpace(raw)))
	switch action {
	case ReviewActionSubmit, ReviewActionApprove, ReviewActionReject, ReviewActionResubmit, ReviewActionRevise:
		return action, true
	}
	return "", false
}

// reviewTransitions is the complete legal transition table. Any pair absent
// from this table is an invalid transition and must be rejected, never
// silently ignored.
var reviewTransitions = map[ReviewStatus]map[ReviewAction]ReviewStatus{
	ReviewStatusDraft: {
		ReviewActionSubmit: ReviewStatusPendingReview,
	},
	ReviewStatusPendingReview: {
		ReviewActionApprove: ReviewStatusApproved,
		ReviewActionReject:  ReviewStatusRejected,
	},
	ReviewStatusRejected: {
		ReviewActionResubmit: ReviewStatusPendingReview,
	},
	ReviewStatusApproved: {
		ReviewActionRevise: ReviewStatusDraft,
	},
}

// NextReviewStatus returns the status reached by applying action from the
// current status, and whether the transition is legal.
func NextReviewStatus(from ReviewStatus, action ReviewAction) (ReviewStatus, bool) {
	next, ok := reviewTransitions[from][action]
	return next, ok
}

// LegalReviewActions lists the actions allowed from the given status.
func LegalReviewActions(from ReviewStatus) []ReviewAction {
	actions := make([]ReviewAction, 0, 2)
	for _, candidate := range []ReviewAction{ReviewActionSubmit, ReviewActionApprove, ReviewActionReject, ReviewActionResubmit, ReviewActionRevise} {
		if _, ok := reviewTransitions[from][candidate]; ok {
			actions = append(actions, candidate)
		}
	}
	return actions
}

// ContentType distinguishes the two catalog entities the pipeline governs.
type ContentType string

const (
	ContentTypeSubject ContentType = "subject"
	ContentTypeLesson  ContentType = "lesson"
)

// ParseContentType normalises a path segment into a content type.
func ParseContentType(raw string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(raw))) {
	case ContentTypeSubject, "subjects":
		return ContentTypeSubject, true
	case ContentTypeLesson, "lessons":
		return ContentTypeLesson, true
	}
	return "", false
}

// TransitionResult reports the prior and new state of a pipeline transition
// so callers can persist their own audit trail.
type TransitionResult struct {
	ContentType ContentType  `json:"content_type"`
	ContentID   string       `json:"content_id"`
	Previous    ReviewStatus `json:"previous"`
	Next        ReviewStatus `json:"next"`
	Version     int64        `json:"version"`
}

// Audience selects which visibility predicates apply to a catalog query.
type Audience string

const (
	AudienceAdmin   Audience = "ADMIN"
	AudiencePublic  Audience = "PUBLIC"
	AudienceStudent Audience = "STUDENT"
)

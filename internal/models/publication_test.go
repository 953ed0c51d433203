package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewTransitionTable(t *testing.T) {
	legal := []struct {
		from   ReviewStatus
		action ReviewAction
		next   ReviewStatus
	}{
		{ReviewStatusDraft, ReviewActionSubmit, ReviewStatusPendingReview},
		{ReviewStatusPendingReview, ReviewActionApprove, ReviewStatusApproved},
		{ReviewStatusPendingReview, ReviewActionReject, ReviewStatusRejected},
		{ReviewStatusRejected, ReviewActionResubmit, ReviewStatusPendingReview},
		{ReviewStatusApproved, ReviewActionRevise, ReviewStatusDraft},
	}

	legalSet := make(map[ReviewStatus]map[ReviewAction]bool)
	for _, tc := range legal {
		next, ok := NextReviewStatus(tc.from, tc.action)
		require.True(t, ok, "%s + %s should be legal", tc.from, tc.action)
		assert.Equal(t, tc.next, next)
		if legalSet[tc.from] == nil {
			legalSet[tc.from] = make(map[ReviewAction]bool)
		}
		legalSet[tc.from][tc.action] = true
	}

	// Every other status and action pair must be illegal.
	statuses := []ReviewStatus{ReviewStatusDraft, ReviewStatusPendingReview, ReviewStatusApproved, ReviewStatusRejected}
	actions := []ReviewAction{ReviewActionSubmit, ReviewActionApprove, ReviewActionReject, ReviewActionResubmit, ReviewActionRevise}
	for _, from := range statuses {
		for _, action := range actions {
			if legalSet[from][action] {
				continue
			}
			_, ok := NextReviewStatus(from, action)
			assert.False(t, ok, "%s + %s should be illegal", from, action)
		}
	}
}

func TestLegalReviewActions(t *testing.T) {
	assert.Equal(t, []ReviewAction{ReviewActionSubmit}, LegalReviewActions(ReviewStatusDraft))
	assert.ElementsMatch(t, []ReviewAction{ReviewActionApprove, ReviewActionReject}, LegalReviewActions(ReviewStatusPendingReview))
	assert.Equal(t, []ReviewAction{ReviewActionResubmit}, LegalReviewActions(ReviewStatusRejected))
	assert.Equal(t, []ReviewAction{ReviewActionRevise}, LegalReviewActions(ReviewStatusApproved))
}

func TestParseReviewAction(t *testing.T) {
	action, ok := ParseReviewAction(" approve ")
	require.True(t, ok)
	assert.Equal(t, ReviewActionApprove, action)

	_, ok = ParseReviewAction("PUBLISH")
	assert.False(t, ok)
}

func TestParseContentType(t *testing.T) {
	ct, ok := ParseContentType("Subjects")
	require.True(t, ok)
	assert.Equal(t, ContentTypeSubject, ct)

	ct, ok = ParseContentType("lesson")
	require.True(t, ok)
	assert.Equal(t, ContentTypeLesson, ct)

	_, ok = ParseContentType("chapter")
	assert.False(t, ok)
}

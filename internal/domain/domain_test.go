package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strp(s string) *string { return &s }

func TestParseRole(t *testing.T) {
	r, ok := ParseRole("buyer")
	assert.True(t, ok)
	assert.Equal(t, RoleBuyer, r)
	_, ok = ParseRole("ADMIN")
	assert.False(t, ok)
}

func TestCanAdvance(t *testing.T) {
	assert.True(t, CanAdvance(StatusPending, StatusInProgress))
	assert.True(t, CanAdvance(StatusInProgress, StatusCompleted))
	assert.False(t, CanAdvance(StatusPending, StatusCompleted))
	assert.False(t, CanAdvance(StatusCompleted, StatusPending))
	assert.False(t, CanAdvance(StatusInProgress, StatusPending))
	assert.False(t, CanAdvance(StatusCompleted, StatusCompleted))
}

func TestCheckStatusUpdate(t *testing.T) {
	cases := []struct {
		name string
		p    Project
		to   Status
		ok   bool
	}{
		{"complete with deliverable", Project{Status: StatusInProgress, Deliverable: strp("f.pdf")}, StatusCompleted, true},
		{"complete without deliverable", Project{Status: StatusInProgress}, StatusCompleted, false},
		{"complete from pending", Project{Status: StatusPending, Deliverable: strp("f.pdf")}, StatusCompleted, false},
		{"already completed", Project{Status: StatusCompleted, Deliverable: strp("f.pdf")}, StatusCompleted, false},
		{"pending to in progress", Project{Status: StatusPending}, StatusInProgress, false},
		{"backwards", Project{Status: StatusInProgress, Deliverable: strp("f.pdf")}, StatusPending, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckStatusUpdate(&tc.p, tc.to)
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, KindInvalidState, KindOf(err))
		})
	}
}

func TestAuthorize(t *testing.T) {
	buyer := Actor{ID: "b1", Role: RoleBuyer}
	other := Actor{ID: "b2", Role: RoleBuyer}
	seller := Actor{ID: "s1", Role: RoleSeller}
	stranger := Actor{ID: "s2", Role: RoleSeller}
	p := &Project{ID: "p1", BuyerID: "b1", SellerID: strp("s1")}

	assert.NoError(t, Authorize(buyer, CapCreateProject, nil))
	assert.Error(t, Authorize(seller, CapCreateProject, nil))
	assert.NoError(t, Authorize(seller, CapPlaceBid, &Project{BuyerID: "b1"}))
	assert.Error(t, Authorize(buyer, CapPlaceBid, nil))

	assert.NoError(t, Authorize(buyer, CapAcceptBid, p))
	assert.Error(t, Authorize(other, CapAcceptBid, p))
	assert.Error(t, Authorize(seller, CapAcceptBid, p))

	assert.NoError(t, Authorize(buyer, CapUpdateStatus, p))
	assert.NoError(t, Authorize(seller, CapUpdateStatus, p))
	assert.Error(t, Authorize(stranger, CapUpdateStatus, p))

	assert.NoError(t, Authorize(seller, CapUploadDeliverable, p))
	assert.Error(t, Authorize(stranger, CapUploadDeliverable, p))
	assert.Error(t, Authorize(buyer, CapUploadDeliverable, p))

	assert.NoError(t, Authorize(buyer, CapReview, p))
	assert.Error(t, Authorize(other, CapReview, p))

	err := Authorize(stranger, CapUploadDeliverable, p)
	assert.Equal(t, KindForbidden, KindOf(err))
}

func TestKindOfWrapped(t *testing.T) {
	base := NotFound("Project not found")
	wrapped := fmt.Errorf("load: %w", base)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "Project not found", MessageOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))

	cause := errors.New("dial tcp: refused")
	u := Unavailable("database unavailable", cause)
	assert.ErrorIs(t, u, cause)
	assert.True(t, IsKind(u, KindUnavailable))
}

func TestPagination(t *testing.T) {
	assert.Equal(t, 0, NewPagination(1, 10, 0).Pages)
	assert.Equal(t, 1, NewPagination(1, 10, 10).Pages)
	assert.Equal(t, 3, NewPagination(1, 10, 21).Pages)
	assert.Equal(t, 20, ProjectFilter{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, 0, ProjectFilter{Page: 0, Limit: 10}.Offset())
}

func TestProjectJSONAlwaysHasCollections(t *testing.T) {
	raw, err := json.Marshal(&Project{ID: "p1", Title: "t", Status: StatusPending})
	assert.NoError(t, err)
	var m map[string]any
	assert.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, []any{}, m["bids"])
	assert.Equal(t, []any{}, m["reviews"])
	assert.Equal(t, "PENDING", m["status"])
	_, hasCount := m["_count"]
	assert.False(t, hasCount)

	raw, err = json.Marshal(Project{ID: "p2", Bids: []Bid{{ID: "b1"}}})
	assert.NoError(t, err)
	assert.NoError(t, json.Unmarshal(raw, &m))
	assert.Len(t, m["bids"], 1)
}

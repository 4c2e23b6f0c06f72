/*
requests.go - Hour request submission and review

REQUEST FLOW:
  Teacher submits (current date only, one per day)
      -> PENDING
  Admin reviews
      -> APPROVED  counts submitted duration toward settlement
      -> MODIFIED  counts the admin-supplied duration instead
      -> REJECTED  counts nothing

  Re-review is allowed and simply overwrites the previous decision. The
  review has no separate "apply" step: the settlement engine recomputes
  entitlement from the request rows on every read, so a review is visible
  to payroll immediately.
*/
package payroll

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/instituteops/finance-engine/finance"
)

// =============================================================================
// REQUEST SERVICE
// =============================================================================

// RequestService handles the hour request lifecycle.
type RequestService struct {
	Store RequestStore
	Clock finance.Clock
}

func NewRequestService(store RequestStore, clock finance.Clock) *RequestService {
	return &RequestService{Store: store, Clock: clock}
}

// Submit records a teacher's worked-time claim for the current date.
// Teachers cannot backdate or forward-date; the date always comes from the
// injected clock.
func (s *RequestService) Submit(ctx context.Context, teacherID string, hours, minutes int) (*HourRequest, error) {
	if teacherID == "" {
		return nil, &finance.ValidationError{Field: "teacherId", Message: "required"}
	}
	if err := validateDuration(hours, minutes); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	req := HourRequest{
		ID:        uuid.NewString(),
		TeacherID: teacherID,
		Date:      finance.DateOf(now),
		Hours:     hours,
		Minutes:   minutes,
		Status:    RequestPending,
		CreatedAt: now,
	}

	if err := s.Store.Insert(ctx, req); err != nil {
		if finance.IsConflict(err) {
			return nil, &finance.ConflictError{
				Kind: "hour request",
				Key:  fmt.Sprintf("%s/%s", teacherID, req.Date.Format("2006-01-02")),
			}
		}
		return nil, err
	}
	return &req, nil
}

// ReviewDecision is an admin's verdict on a pending (or previously reviewed)
// hour request.
type ReviewDecision struct {
	Status          HourRequestStatus // APPROVED, REJECTED or MODIFIED
	ModifiedHours   *int              // required when Status == MODIFIED
	ModifiedMinutes *int              // required when Status == MODIFIED
	Feedback        string
	ReviewedBy      string
}

// Review applies an admin decision to a request. A later review overwrites
// an earlier one; re-reviewing with the same decision is a no-op in effect.
func (s *RequestService) Review(ctx context.Context, requestID string, decision ReviewDecision) (*HourRequest, error) {
	switch decision.Status {
	case RequestApproved, RequestRejected, RequestModified:
	default:
		return nil, &finance.ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("must be %s, %s or %s", RequestApproved, RequestRejected, RequestModified),
		}
	}

	if decision.Status == RequestModified {
		if decision.ModifiedHours == nil || decision.ModifiedMinutes == nil {
			return nil, &finance.DomainInvariantError{
				Invariant: "modified_review_requires_duration",
				Message:   "a MODIFIED review must carry modified hours and minutes",
			}
		}
		if err := validateDuration(*decision.ModifiedHours, *decision.ModifiedMinutes); err != nil {
			return nil, err
		}
	}

	req, err := s.Store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &finance.NotFoundError{Kind: "hour request", ID: requestID}
	}

	now := s.Clock.Now()
	req.Status = decision.Status
	req.AdminFeedback = decision.Feedback
	req.ReviewedBy = decision.ReviewedBy
	req.ReviewedAt = &now
	if decision.Status == RequestModified {
		req.AdminModifiedHours = decision.ModifiedHours
		req.AdminModifiedMinutes = decision.ModifiedMinutes
	} else {
		// A non-MODIFIED re-review clears any earlier modification.
		req.AdminModifiedHours = nil
		req.AdminModifiedMinutes = nil
	}

	if err := s.Store.Update(ctx, *req); err != nil {
		return nil, err
	}
	return req, nil
}

// ListPending returns requests awaiting review, date ascending with a stable
// insertion-order tie-break so admins work a predictable queue. Empty
// teacherID lists all teachers.
func (s *RequestService) ListPending(ctx context.Context, teacherID string) ([]HourRequest, error) {
	return s.Store.ListPending(ctx, teacherID)
}

// ListInPeriod returns a teacher's requests dated within the period.
func (s *RequestService) ListInPeriod(ctx context.Context, teacherID string, period finance.Period) ([]HourRequest, error) {
	return s.Store.ListInPeriod(ctx, teacherID, period)
}

func validateDuration(hours, minutes int) error {
	if hours < 0 || hours > 24 {
		return &finance.ValidationError{Field: "hours", Message: fmt.Sprintf("must be 0-24, got %d", hours)}
	}
	if minutes < 0 || minutes > 59 {
		return &finance.ValidationError{Field: "minutes", Message: fmt.Sprintf("must be 0-59, got %d", minutes)}
	}
	return nil
}

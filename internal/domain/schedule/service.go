package schedule

import (
	"context"
	"errors"
	"time"
)

type Service struct {
	Store StoreAPI
	Now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Now: time.Now}
}

func (s *Service) ListShifts(ctx context.Context, activeOnly bool) ([]Shift, error) {
	return s.Store.ListShifts(ctx, activeOnly)
}

func (s *Service) GetShift(ctx context.Context, id string) (Shift, error) {
	return s.Store.GetShift(ctx, id)
}

func (s *Service) CreateShift(ctx context.Context, in ShiftInput) (Shift, error) {
	sh := Shift{
		Name:            in.Name,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		BreakMinutes:    in.BreakMinutes,
		CrossesMidnight: CrossesMidnight(in.StartTime, in.EndTime),
		IsActive:        true,
		Description:     in.Description,
	}
	if in.IsActive != nil {
		sh.IsActive = *in.IsActive
	}
	return s.Store.CreateShift(ctx, sh)
}

func (s *Service) UpdateShift(ctx context.Context, id string, in ShiftUpdate) (Shift, error) {
	sh, err := s.Store.GetShift(ctx, id)
	if err != nil {
		return Shift{}, err
	}
	if in.Name != nil {
		sh.Name = *in.Name
	}
	if in.StartTime != nil {
		sh.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		sh.EndTime = *in.EndTime
	}
	if in.BreakMinutes != nil {
		sh.BreakMinutes = *in.BreakMinutes
	}
	if in.IsActive != nil {
		sh.IsActive = *in.IsActive
	}
	if in.Description != nil {
		sh.Description = *in.Description
	}
	sh.CrossesMidnight = CrossesMidnight(sh.StartTime, sh.EndTime)
	return s.Store.UpdateShift(ctx, id, sh)
}

func (s *Service) DeleteShift(ctx context.Context, id string) error {
	return s.Store.DeleteShift(ctx, id)
}

func (s *Service) activeShift(ctx context.Context, id string) (Shift, error) {
	sh, err := s.Store.GetShift(ctx, id)
	if err != nil {
		return Shift{}, err
	}
	if !sh.IsActive {
		return Shift{}, ErrShiftInactive
	}
	return sh, nil
}

func newSchedule(sh Shift, employeeID string, date time.Time, notes string, actorID string) Schedule {
	sch := Schedule{
		EmployeeID: employeeID,
		ShiftID:    sh.ID,
		ShiftName:  sh.Name,
		Date:       date,
		StartTime:  sh.StartTime,
		EndTime:    sh.EndTime,
		Status:     StatusScheduled,
		Notes:      notes,
	}
	if actorID != "" {
		sch.CreatedBy = &actorID
	}
	return sch
}

// Create assigns one shift. The conflict check runs before the insert and the
// partial unique index catches concurrent bookings.
func (s *Service) Create(ctx context.Context, actorID string, in Assignment) (Schedule, error) {
	sh, err := s.activeShift(ctx, in.ShiftID)
	if err != nil {
		return Schedule{}, err
	}
	taken, err := s.Store.ActiveDates(ctx, in.EmployeeID, in.Date, in.Date, "")
	if err != nil {
		return Schedule{}, err
	}
	if taken[in.Date.Format(dateLayout)] {
		return Schedule{}, ErrConflict
	}
	sch := newSchedule(sh, in.EmployeeID, in.Date, in.Notes, actorID)
	if in.StartTime != "" {
		sch.StartTime = in.StartTime
	}
	if in.EndTime != "" {
		sch.EndTime = in.EndTime
	}
	return s.Store.Create(ctx, sch)
}

// CreateRecurring books every date of the recurrence, skipping and reporting
// dates on which the employee is already scheduled.
func (s *Service) CreateRecurring(ctx context.Context, actorID string, in Recurrence) (RecurringResult, error) {
	sh, err := s.activeShift(ctx, in.ShiftID)
	if err != nil {
		return RecurringResult{}, err
	}
	dates, err := ExpandDates(in.Rule, in.Start, in.Until)
	if err != nil {
		return RecurringResult{}, err
	}
	taken, err := s.Store.ActiveDates(ctx, in.EmployeeID, in.Start, in.Until, "")
	if err != nil {
		return RecurringResult{}, err
	}
	free, skipped := SplitConflicts(dates, taken)

	result := RecurringResult{Created: []Schedule{}, Skipped: skipped}
	for _, d := range free {
		created, err := s.Store.Create(ctx, newSchedule(sh, in.EmployeeID, d, in.Notes, actorID))
		if errors.Is(err, ErrConflict) {
			result.Skipped = append(result.Skipped, d.Format(dateLayout))
			continue
		}
		if err != nil {
			return result, err
		}
		result.Created = append(result.Created, created)
	}
	return result, nil
}

func (s *Service) Get(ctx context.Context, id string) (Schedule, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Schedule, int, error) {
	return s.Store.List(ctx, filter, limit, offset)
}

func (s *Service) Update(ctx context.Context, id string, in ScheduleUpdate) (Schedule, error) {
	sch, err := s.Store.Get(ctx, id)
	if err != nil {
		return Schedule{}, err
	}
	if in.ShiftID != nil && *in.ShiftID != sch.ShiftID {
		sh, err := s.activeShift(ctx, *in.ShiftID)
		if err != nil {
			return Schedule{}, err
		}
		sch.ShiftID, sch.ShiftName, sch.StartTime, sch.EndTime = sh.ID, sh.Name, sh.StartTime, sh.EndTime
	}
	if in.StartTime != nil {
		sch.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		sch.EndTime = *in.EndTime
	}
	if in.Status != nil {
		if IsActive(*in.Status) && !IsActive(sch.Status) {
			taken, err := s.Store.ActiveDates(ctx, sch.EmployeeID, sch.Date, sch.Date, sch.ID)
			if err != nil {
				return Schedule{}, err
			}
			if taken[sch.Date.Format(dateLayout)] {
				return Schedule{}, ErrConflict
			}
		}
		sch.Status = *in.Status
	}
	if in.Overtime != nil {
		sch.Overtime = *in.Overtime
	}
	if in.Notes != nil {
		sch.Notes = *in.Notes
	}
	return s.Store.Save(ctx, sch)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Store.Delete(ctx, id)
}

func (s *Service) Stats(ctx context.Context, filter Filter) (Stats, error) {
	return s.Store.Stats(ctx, filter)
}

// RequestSwap files a swap of the requester's own scheduled assignment with
// another employee's.
func (s *Service) RequestSwap(ctx context.Context, requesterID string, in SwapInput) (SwapRequest, error) {
	source, err := s.Store.Get(ctx, in.ScheduleID)
	if err != nil {
		return SwapRequest{}, err
	}
	if source.EmployeeID != requesterID {
		return SwapRequest{}, ErrNotOwner
	}
	target, err := s.Store.Get(ctx, in.TargetScheduleID)
	if err != nil {
		return SwapRequest{}, err
	}
	if target.EmployeeID == requesterID {
		return SwapRequest{}, ErrSwapSameEmployee
	}
	if source.Status != StatusScheduled || target.Status != StatusScheduled {
		return SwapRequest{}, ErrSwapInactive
	}
	return s.Store.CreateSwap(ctx, SwapRequest{
		RequesterID:      requesterID,
		ScheduleID:       source.ID,
		TargetScheduleID: target.ID,
		Reason:           in.Reason,
		Status:           SwapPending,
	})
}

func (s *Service) GetSwap(ctx context.Context, id string) (SwapRequest, error) {
	return s.Store.GetSwap(ctx, id)
}

func (s *Service) ListSwaps(ctx context.Context, filter SwapFilter, limit, offset int) ([]SwapRequest, int, error) {
	return s.Store.ListSwaps(ctx, filter, limit, offset)
}

func (s *Service) ApproveSwap(ctx context.Context, id, reviewerID string) (SwapRequest, error) {
	return s.Store.ApproveSwap(ctx, id, reviewerID, s.Now().UTC())
}

func (s *Service) RejectSwap(ctx context.Context, id, reviewerID string) (SwapRequest, error) {
	return s.Store.CloseSwap(ctx, id, SwapRejected, &reviewerID, s.Now().UTC())
}

func (s *Service) CancelSwap(ctx context.Context, id, requesterID string) (SwapRequest, error) {
	req, err := s.Store.GetSwap(ctx, id)
	if err != nil {
		return SwapRequest{}, err
	}
	if req.RequesterID != requesterID {
		return SwapRequest{}, ErrNotOwner
	}
	return s.Store.CloseSwap(ctx, id, SwapCancelled, nil, s.Now().UTC())
}

package attendance

import (
	"context"
	"errors"
	"time"
)

type Service struct {
	Store        StoreAPI
	Location     *time.Location
	WorkdayStart string
	LateGrace    time.Duration
	Now          func() time.Time
}

func NewService(store StoreAPI, loc *time.Location, workdayStart string, lateGrace time.Duration) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{Store: store, Location: loc, WorkdayStart: workdayStart, LateGrace: lateGrace, Now: time.Now}
}

func (s *Service) today() (time.Time, time.Time) {
	now := s.Now()
	return now, CalendarDate(now, s.Location)
}

func methodOrDefault(method string) string {
	if method == "" {
		return MethodWeb
	}
	return method
}

// ClockIn opens today's record. A second clock-in on the same day fails with
// ErrAlreadyCheckedIn, enforced by the (user, date) unique index.
func (s *Service) ClockIn(ctx context.Context, userID string, in PunchInput) (Record, error) {
	now, date := s.today()
	rec := Record{
		UserID:  userID,
		Date:    date,
		CheckIn: CheckPoint{Time: &now, Location: in.Location, Method: methodOrDefault(in.Method)},
		Breaks:  []Break{},
		Status:  ArrivalStatus(now, s.WorkdayStart, s.LateGrace, s.Location),
		Notes:   in.Notes,
	}
	return s.Store.Create(ctx, DeriveWorkHours(rec))
}

func (s *Service) openRecord(ctx context.Context, userID string) (Record, time.Time, error) {
	now, date := s.today()
	rec, err := s.Store.GetByUserDate(ctx, userID, date)
	if errors.Is(err, ErrNotFound) {
		return Record{}, now, ErrNotCheckedIn
	}
	if err != nil {
		return Record{}, now, err
	}
	if rec.CheckOut.Time != nil {
		return Record{}, now, ErrAlreadyCheckedOut
	}
	return rec, now, nil
}

// ClockOut closes today's record. A break still open is ended at check-out.
func (s *Service) ClockOut(ctx context.Context, userID string, in PunchInput) (Record, error) {
	rec, now, err := s.openRecord(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	if i := rec.OpenBreak(); i >= 0 {
		rec.Breaks[i].End = &now
	}
	rec.CheckOut = CheckPoint{Time: &now, Location: in.Location, Method: methodOrDefault(in.Method)}
	if in.Notes != "" {
		rec.Notes = in.Notes
	}
	rec = DeriveWorkHours(rec)
	if rec.WorkHours < halfDayMinutes && rec.Status != StatusAbsent {
		rec.Status = StatusHalfDay
	}
	return s.Store.Save(ctx, rec)
}

func (s *Service) StartBreak(ctx context.Context, userID string, in BreakInput) (Record, error) {
	rec, now, err := s.openRecord(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	if rec.OpenBreak() >= 0 {
		return Record{}, ErrBreakInProgress
	}
	rec.Breaks = append(rec.Breaks, Break{Start: now, Reason: in.Reason})
	return s.Store.Save(ctx, DeriveWorkHours(rec))
}

func (s *Service) EndBreak(ctx context.Context, userID string) (Record, error) {
	rec, now, err := s.openRecord(ctx, userID)
	if err != nil {
		return Record{}, err
	}
	i := rec.OpenBreak()
	if i < 0 {
		return Record{}, ErrNoOpenBreak
	}
	rec.Breaks[i].End = &now
	return s.Store.Save(ctx, DeriveWorkHours(rec))
}

// Today returns the caller's record for the current day, or ErrNotFound.
func (s *Service) Today(ctx context.Context, userID string) (Record, error) {
	_, date := s.today()
	return s.Store.GetByUserDate(ctx, userID, date)
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.Store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter Filter, limit, offset int) ([]Record, int, error) {
	return s.Store.List(ctx, filter, limit, offset)
}

func (s *Service) Stats(ctx context.Context, filter Filter) (Stats, error) {
	return s.Store.Stats(ctx, filter)
}

// Correct applies a manual admin/hr correction and re-derives the totals.
func (s *Service) Correct(ctx context.Context, id string, in CorrectionInput) (Record, error) {
	rec, err := s.Store.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}
	if in.CheckIn != nil {
		t := *in.CheckIn
		if !CalendarDate(t, s.Location).Equal(rec.Date) {
			return Record{}, ErrCorrectionDate
		}
		rec.CheckIn.Time = &t
		rec.CheckIn.Method = MethodManual
	}
	if in.CheckOut != nil {
		t := *in.CheckOut
		rec.CheckOut.Time = &t
		rec.CheckOut.Method = MethodManual
	}
	if rec.CheckIn.Time != nil && rec.CheckOut.Time != nil && !rec.CheckOut.Time.After(*rec.CheckIn.Time) {
		return Record{}, ErrInvalidCorrection
	}
	if in.Status != nil {
		rec.Status = *in.Status
	}
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
	return s.Store.Save(ctx, DeriveWorkHours(rec))
}

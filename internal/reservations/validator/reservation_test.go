package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"roomres/pkg/clock"
	"roomres/pkg/logger"
	"roomres/pkg/model"
)

var manila = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Manila")
	if err != nil {
		panic(err)
	}
	return loc
}()

func testValidator(now time.Time) *ReservationValidator {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  "json",
		Service: "test",
	})
	return NewReservationValidator(clock.In(clockwork.NewFakeClockAt(now), manila), log)
}

func validReservation(now time.Time) *model.Reservation {
	start := now.Add(2 * time.Hour)
	return &model.Reservation{
		RoomID:   "64f000000000000000000010",
		RoomName: "AVR 2",
		Location: "Main Building, 3F",
		UserID:   "stu-1001",
		NumUsers: 3,
		Purpose:  "Capstone group meeting",
		Participants: []model.Participant{
			{Name: "Ana Reyes", IDNumber: "2021-04512", Department: "Computer Science"},
			{Name: "Ben Cruz", IDNumber: "2020-00981", Department: "Computer Science"},
		},
		StartTime: start,
		EndTime:   start.Add(2 * time.Hour),
		Status:    model.StatusPending,
	}
}

func TestValidate_OK(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, manila)
	v := testValidator(now)

	if err := v.Validate(validReservation(now)); err != nil {
		t.Fatalf("valid reservation rejected: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, manila)
	v := testValidator(now)

	tests := []struct {
		name    string
		mutate  func(res *model.Reservation)
		wantMsg string
	}{
		{
			"missing room",
			func(r *model.Reservation) { r.RoomID = "" },
			"RoomID is required",
		},
		{
			"room id not an object id",
			func(r *model.Reservation) { r.RoomID = "room-1" },
			"RoomID must be a valid MongoDB ObjectID",
		},
		{
			"missing purpose",
			func(r *model.Reservation) { r.Purpose = "" },
			"Purpose is required",
		},
		{
			"end before start",
			func(r *model.Reservation) { r.EndTime = r.StartTime.Add(-time.Hour) },
			"EndTime must be after StartTime",
		},
		{
			"start in the past",
			func(r *model.Reservation) {
				r.StartTime = now.Add(-time.Hour)
				r.EndTime = now.Add(time.Hour)
			},
			"start_time cannot be in the past",
		},
		{
			"participant id number malformed",
			func(r *model.Reservation) { r.Participants[0].IDNumber = "abc-123" },
			"IDNumber must be a student or employee ID number",
		},
		{
			"participants exceed headcount",
			func(r *model.Reservation) { r.NumUsers = 1 },
			"exceeds declared headcount",
		},
		{
			"unknown status",
			func(r *model.Reservation) { r.Status = "archived" },
			"Status must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := validReservation(now)
			tt.mutate(res)

			err := v.Validate(res)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidateIDNumberFormats(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, manila)
	v := testValidator(now)

	valid := []string{"2021-04512", "20", "123456789012", "99-1"}
	for _, id := range valid {
		res := validReservation(now)
		res.Participants[0].IDNumber = id
		if err := v.Validate(res); err != nil {
			t.Errorf("ID %q rejected: %v", id, err)
		}
	}

	invalid := []string{"1", "2021-", "-04512", "2021 04512", "id2021"}
	for _, id := range invalid {
		res := validReservation(now)
		res.Participants[0].IDNumber = id
		if err := v.Validate(res); err == nil {
			t.Errorf("ID %q accepted, want rejection", id)
		}
	}
}

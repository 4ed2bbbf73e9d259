package domain

import "testing"

func TestBookingStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   BookingStatus
		terminal bool
	}{
		{BookingStatusPending, false},
		{BookingStatusRetryPending, false},
		{BookingStatusCompleted, true},
		{BookingStatusFailedNoAddress, true},
		{BookingStatusFailedBooking, true},
		{BookingStatusFailedUnexpected, true},
		{BookingStatus("unknown"), false},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s: IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestActiveBookingStatuses(t *testing.T) {
	// Replay подхватывает ровно нетерминальные статусы
	for _, s := range ActiveBookingStatuses {
		if BookingStatus(s).IsTerminal() {
			t.Errorf("%s must not be terminal", s)
		}
	}
	if len(ActiveBookingStatuses) != 2 {
		t.Errorf("expected 2 active statuses, got %d", len(ActiveBookingStatuses))
	}
}

package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestAllowsType(t *testing.T) {
	prefs := DefaultPreferences(uuid.New())
	prefs.StreakReminders = false
	prefs.EmailNotifications = false // channel flag, not a type flag

	tests := []struct {
		name string
		typ  NotificationType
		want bool
	}{
		{"session reminder allowed", TypeSessionReminder, true},
		{"streak reminder opted out", TypeStreakReminder, false},
		{"crisis alert has no opt-out", TypeCrisisAlert, true},
		{"campaign step has no opt-out", TypeCampaignStep, true},
		{"custom has no opt-out", TypeCustom, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := prefs.AllowsType(tt.typ); got != tt.want {
				t.Errorf("AllowsType(%s) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestInQuietHours(t *testing.T) {
	at := func(hour, min int) time.Time {
		return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
	}

	tests := []struct {
		name       string
		start, end *string
		now        time.Time
		want       bool
	}{
		{"no window configured", nil, nil, at(23, 0), false},
		{"wrap: late evening inside", strPtr("22:00"), strPtr("06:00"), at(23, 30), true},
		{"wrap: early morning inside", strPtr("22:00"), strPtr("06:00"), at(2, 0), true},
		{"wrap: midday outside", strPtr("22:00"), strPtr("06:00"), at(12, 0), false},
		{"wrap: end bound is exclusive", strPtr("22:00"), strPtr("06:00"), at(6, 0), false},
		{"wrap: start bound is inclusive", strPtr("22:00"), strPtr("06:00"), at(22, 0), true},
		{"same-day window inside", strPtr("13:00"), strPtr("15:00"), at(14, 0), true},
		{"same-day window outside", strPtr("13:00"), strPtr("15:00"), at(16, 0), false},
		{"degenerate window never matches", strPtr("09:00"), strPtr("09:00"), at(9, 0), false},
		{"unparseable bound disables window", strPtr("25:99"), strPtr("06:00"), at(23, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &UserPreferences{QuietHoursStart: tt.start, QuietHoursEnd: tt.end}
			if got := p.InQuietHours(tt.now); got != tt.want {
				t.Errorf("InQuietHours(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
			}
		})
	}
}

func TestChannelRankOrdering(t *testing.T) {
	if ChannelInApp.Rank() >= ChannelEmail.Rank() {
		t.Error("in_app should rank before email")
	}
	if ChannelSlack.Rank() >= ChannelSMS.Rank() {
		t.Error("slack should rank before sms")
	}
	if Channel("carrier_pigeon").Rank() <= ChannelSMS.Rank() {
		t.Error("unknown channels should sort last")
	}
}

func TestJobIsTerminal(t *testing.T) {
	q := &QueuedNotification{Status: JobPending}
	if q.IsTerminal() {
		t.Error("pending is not terminal")
	}
	q.Status = JobProcessing
	if q.IsTerminal() {
		t.Error("processing is not terminal")
	}
	q.Status = JobCompleted
	if !q.IsTerminal() {
		t.Error("completed is terminal")
	}
	q.Status = JobFailed
	if !q.IsTerminal() {
		t.Error("failed is terminal")
	}
}

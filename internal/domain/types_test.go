package domain

import (
	"testing"
)

func TestAppointmentStatusIsValid(t *testing.T) {
	valid := []AppointmentStatus{
		StatusRegistered, StatusPendingReview, StatusEligible, StatusIneligible,
		StatusCheckedIn, StatusDonated, StatusDeferred, StatusCancelled,
	}
	for _, status := range valid {
		if !status.IsValid() {
			t.Errorf("Expected %s to be valid", status)
		}
	}

	invalid := []AppointmentStatus{"", "UNKNOWN", "registered", "Chờ duyệt"}
	for _, status := range invalid {
		if status.IsValid() {
			t.Errorf("Expected %q to be invalid", status)
		}
	}
}

func TestAppointmentStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   AppointmentStatus
		terminal bool
	}{
		{StatusRegistered, false},
		{StatusPendingReview, false},
		{StatusEligible, false},
		{StatusCheckedIn, false},
		{StatusIneligible, true},
		{StatusDonated, true},
		{StatusDeferred, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
		}
	}
}

func TestAppointmentStatusAllowsDonorCancel(t *testing.T) {
	cancellable := []AppointmentStatus{StatusRegistered, StatusPendingReview, StatusEligible}
	for _, status := range cancellable {
		if !status.AllowsDonorCancel() {
			t.Errorf("Expected donor cancel to be allowed from %s", status)
		}
	}

	notCancellable := []AppointmentStatus{
		StatusCheckedIn, StatusDonated, StatusDeferred, StatusCancelled, StatusIneligible,
	}
	for _, status := range notCancellable {
		if status.AllowsDonorCancel() {
			t.Errorf("Expected donor cancel to be refused from %s", status)
		}
	}
}

func TestParseLegacyStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want AppointmentStatus
	}{
		{"Vietnamese registered", "Đã đăng ký", StatusRegistered},
		{"Vietnamese pending", "Chờ duyệt", StatusPendingReview},
		{"Vietnamese pending long form", "chờ xét duyệt", StatusPendingReview},
		{"Vietnamese eligible", "Đủ điều kiện", StatusEligible},
		{"Vietnamese ineligible", "Không đủ điều kiện", StatusIneligible},
		{"Vietnamese checked in", "Đã điểm danh", StatusCheckedIn},
		{"Vietnamese donated", "Đã hiến máu", StatusDonated},
		{"Vietnamese deferred", "Tạm hoãn", StatusDeferred},
		{"Vietnamese cancelled", "Đã hủy", StatusCancelled},
		{"English with whitespace", "  Pending Review  ", StatusPendingReview},
		{"American spelling", "canceled", StatusCancelled},
		{"Enum value round trip", "CHECKED_IN", StatusCheckedIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLegacyStatus(tt.raw)
			if err != nil {
				t.Fatalf("ParseLegacyStatus(%q) returned error: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseLegacyStatus(%q) = %s, want %s", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseLegacyStatusUnknown(t *testing.T) {
	if _, err := ParseLegacyStatus("something else entirely"); err == nil {
		t.Error("Expected error for unknown legacy status")
	}
}

func TestParseBloodType(t *testing.T) {
	tests := []struct {
		raw  string
		want BloodType
	}{
		{"O-", BloodONeg},
		{"o+", BloodOPos},
		{" ab- ", BloodABNeg},
		{"AB+", BloodABPos},
	}

	for _, tt := range tests {
		got, err := ParseBloodType(tt.raw)
		if err != nil {
			t.Fatalf("ParseBloodType(%q) returned error: %v", tt.raw, err)
		}
		if got != tt.want {
			t.Errorf("ParseBloodType(%q) = %s, want %s", tt.raw, got, tt.want)
		}
	}

	if _, err := ParseBloodType("C+"); err == nil {
		t.Error("Expected error for unknown blood type code")
	}
}

func TestEligibilityOutcomeIsValid(t *testing.T) {
	for _, outcome := range []EligibilityOutcome{OutcomeEligible, OutcomeNeedsStaffReview, OutcomeIneligible} {
		if !outcome.IsValid() {
			t.Errorf("Expected %s to be valid", outcome)
		}
	}
	if EligibilityOutcome("MAYBE").IsValid() {
		t.Error("Expected MAYBE to be invalid")
	}
}

func TestStatusLogFields(t *testing.T) {
	fields := StatusDeferred.LogFields()

	if fields["status"] != "DEFERRED" {
		t.Errorf("Expected status field DEFERRED, got %v", fields["status"])
	}
	if fields["is_terminal"] != true {
		t.Error("Expected is_terminal to be true for DEFERRED")
	}
	if fields["donor_cancel"] != false {
		t.Error("Expected donor_cancel to be false for DEFERRED")
	}
}

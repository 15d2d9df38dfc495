package model

import "testing"

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestStatusValid(t *testing.T) {
	tests := []struct {
		status   Status
		expected bool
	}{
		{StatusLost, true},
		{StatusFound, true},
		{"", false},
		{"LOST", false},
		{"stolen", false},
	}

	for _, tt := range tests {
		if got := tt.status.Valid(); got != tt.expected {
			t.Errorf("Status(%q).Valid() = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range Categories {
		if !c.Valid() {
			t.Errorf("expected category %q to be valid", c)
		}
	}
	if Category("furniture").Valid() {
		t.Error("expected unknown category to be invalid")
	}
	if Category("").Valid() {
		t.Error("expected empty category to be invalid")
	}
}

func TestFilterMatches(t *testing.T) {
	lost := Item{ID: "1", Status: StatusLost}
	found := Item{ID: "2", Status: StatusFound}

	all := Filter{}
	if !all.Matches(lost) || !all.Matches(found) {
		t.Error("zero filter should match every item")
	}
	if all.String() != "all" {
		t.Errorf("expected key 'all', got %q", all.String())
	}

	onlyLost := Filter{Status: StatusLost}
	if !onlyLost.Matches(lost) {
		t.Error("lost filter should match lost item")
	}
	if onlyLost.Matches(found) {
		t.Error("lost filter should not match found item")
	}

	unknown := Filter{Status: "stolen"}
	if unknown.Matches(lost) || unknown.Matches(found) {
		t.Error("unknown status filter should match nothing")
	}
}

package domain

import "testing"

func TestLastNameOf(t *testing.T) {
	tests := []struct {
		fullName string
		expected string
	}{
		{"Nguyễn Văn An", "Nguyễn"},
		{"Trần Thị Bình", "Trần"},
		{"王伟", "王伟"},
		{"  张 敏  ", "张"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := LastNameOf(tt.fullName); got != tt.expected {
			t.Errorf("LastNameOf(%q) = %q, 期望 %q", tt.fullName, got, tt.expected)
		}
	}
}

package logger

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
	}{
		{"dev", "debug", false},
		{"production", "info", false},
		{"dev", "loud", true},
	}
	for _, tt := range tests {
		l, err := New(tt.env, tt.level)
		if (err != nil) != tt.wantErr {
			t.Fatalf("New(%q, %q) error = %v, wantErr %v", tt.env, tt.level, err, tt.wantErr)
		}
		if err == nil && l == nil {
			t.Fatalf("New(%q, %q) returned nil logger", tt.env, tt.level)
		}
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) returned nil")
	}
}

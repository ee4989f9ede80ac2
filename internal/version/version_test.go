package version

import (
	"errors"
	"testing"
)

func TestStringConstants(t *testing.T) {
	tests := []struct {
		name     string
		constant string
		expected string
	}{
		{"OpParseRelease", OpParseRelease, "parse_release"},
		{"OpParseMajor", OpParseMajor, "parse_major"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.constant != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, tt.constant)
			}
		})
	}
}

func TestErrVersionParseFailed(t *testing.T) {
	cause := errors.New("test cause")
	err := ErrVersionParseFailed{
		Version: "invalid",
		Op:      OpParseRelease,
		Cause:   cause,
	}

	expectedMsg := "failed to parse version invalid in operation parse_release: test cause"
	if err.Error() != expectedMsg {
		t.Errorf("expected %q, got %q", expectedMsg, err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected Unwrap to expose the cause")
	}
	if !err.Is(ErrVersionParseFailed{}) {
		t.Error("expected Is method to work correctly")
	}
}

func TestParseRelease(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "17", want: "17.0.0"},
		{input: "17.0.8", want: "17.0.8"},
		{input: "jdk-17.0.8+7", want: "17.0.8+7"},
		{input: "jdk-21+35", want: "21.0.0+35"},
		{input: "jdk-17.0.4.1+1", want: "17.0.4+1.1"},
		{input: "jdk8u382-b05", want: "8.0.382+b05"},
		{input: "8u382b05", want: "8.0.382+b05"},
		{input: " 11.0.20 ", want: "11.0.20"},
		{input: "", wantErr: true},
		{input: "jdk-", wantErr: true},
		{input: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseRelease(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRelease(%q) expected error, got %v", tt.input, got)
				}
				var parseErr ErrVersionParseFailed
				if !errors.As(err, &parseErr) {
					t.Errorf("ParseRelease(%q) error type = %T", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRelease(%q) error = %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseRelease(%q) = %s, want %s", tt.input, got.String(), tt.want)
			}
		})
	}
}

func TestParseMajor(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{input: "17", want: 17},
		{input: "17.0.8", want: 17},
		{input: "jdk-17.0.8+7", want: 17},
		{input: "11", want: 11},
		{input: "jdk8u382-b05", want: 8},
		{input: "0.1", wantErr: true},
		{input: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMajor(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMajor(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMajor(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestLatest(t *testing.T) {
	got, err := Latest([]string{"jdk-17.0.8+7", "nightly", "jdk-17.0.10+7", "jdk-17.0.9+9"})
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got != "jdk-17.0.10+7" {
		t.Errorf("Latest() = %s", got)
	}

	if _, err := Latest(nil); !errors.Is(err, ErrNoVersionsProvided) {
		t.Errorf("Latest(nil) error = %v", err)
	}
	if _, err := Latest([]string{"a", "b"}); !errors.Is(err, ErrInvalidVersion) {
		t.Errorf("Latest(invalid) error = %v", err)
	}
}

package internal

import (
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestDataConfig_BadStartDate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Data.StartDate = "2020-01-22"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("ISO-form start date should fail validation")
	}
	if !strings.Contains(err.Error(), "MM-DD-YYYY") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDataConfig_StartParses(t *testing.T) {
	cfg := DataConfig{Dir: "./data", StartDate: "03-15-2020", BaseURL: "http://example.com/"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid data config rejected: %v", err)
	}
	start := cfg.Start()
	if start.Year() != 2020 || start.Month() != 3 || start.Day() != 15 {
		t.Errorf("Start() = %v, want 2020-03-15", start)
	}
}

func TestHTTPConfig_PortBounds(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := HTTPConfig{Port: port}
		if err := cfg.Validate(); err == nil {
			t.Errorf("port %d should fail validation", port)
		}
	}
	cfg := HTTPConfig{Port: 8080}
	if err := cfg.Validate(); err != nil {
		t.Errorf("port 8080 should pass: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Errorf("Address() = %q, want %q", cfg.Address(), ":8080")
	}
}

func TestChartsConfig_TicksDivisor(t *testing.T) {
	cfg := ChartsConfig{Dir: "./charts", TicksDivisor: 0}
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero ticks divisor should fail validation")
	}
}

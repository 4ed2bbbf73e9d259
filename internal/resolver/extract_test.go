package resolver

import (
	"errors"
	"testing"
)

func TestExtractAddress_PlainString(t *testing.T) {
	address, err := ExtractAddress([]byte(`{"address": "123 Main St, Toronto, ON M5V 2T6"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "123 Main St, Toronto, ON M5V 2T6" {
		t.Errorf("unexpected address: %s", address)
	}
}

func TestExtractAddress_Parts(t *testing.T) {
	payload := `{
		"address": {
			"street": "55 King St W",
			"city": "Toronto",
			"province": "ON",
			"postal_code": "M5H 1J9"
		}
	}`
	address, err := ExtractAddress([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "55 King St W, Toronto, ON, M5H 1J9" {
		t.Errorf("unexpected address: %s", address)
	}
}

func TestExtractAddress_PartsAtTopLevel(t *testing.T) {
	payload := `{"street_address": "77 Bay St", "municipality": "Toronto"}`
	address, err := ExtractAddress([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "77 Bay St, Toronto" {
		t.Errorf("unexpected address: %s", address)
	}
}

func TestExtractAddress_ArrayWrapper(t *testing.T) {
	address, err := ExtractAddress([]byte(`[{"address": "1 Front St"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if address != "1 Front St" {
		t.Errorf("unexpected address: %s", address)
	}
}

func TestExtractAddress_Nested(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"under data", `{"data": {"address": "2 Queen St"}}`, "2 Queen St"},
		{"under property", `{"property": {"address": "3 Yonge St"}}`, "3 Yonge St"},
		{"deeply nested", `{"data": {"property": {"street": "4 Bloor St", "city": "Toronto"}}}`, "4 Bloor St, Toronto"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			address, err := ExtractAddress([]byte(tt.payload))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if address != tt.want {
				t.Errorf("expected %q, got %q", tt.want, address)
			}
		})
	}
}

func TestExtractAddress_StreetRequired(t *testing.T) {
	// Части без street не собираются в адрес
	_, err := ExtractAddress([]byte(`{"address": {"city": "Toronto", "province": "ON"}}`))
	if !errors.Is(err, ErrNoRecognizableAddress) {
		t.Errorf("expected ErrNoRecognizableAddress, got %v", err)
	}
}

func TestExtractAddress_Unrecognizable(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"no address field", `{"name": "nice house"}`},
		{"empty object", `{}`},
		{"empty array", `[]`},
		{"empty address", `{"address": ""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractAddress([]byte(tt.payload))
			if !errors.Is(err, ErrNoRecognizableAddress) {
				t.Errorf("expected ErrNoRecognizableAddress, got %v", err)
			}
		})
	}
}

func TestExtractAddress_InvalidJSON(t *testing.T) {
	_, err := ExtractAddress([]byte(`not json`))
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  123   Main  St  ", "123 Main St"},
		{"123 Main St,", "123 Main St"},
		{", 123 Main St", "123 Main St"},
		{"123 Main St", "123 Main St"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

package validator

import (
	stderrors "errors"
	"testing"

	"docketflow/internal/pkg/errors"
)

type uploadRequest struct {
	FileName string `json:"fileName" validate:"required,filename"`
	FileType string `json:"fileType" validate:"required"`
	ClientID string `json:"clientId" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
}

func TestStruct_MissingFields(t *testing.T) {
	err := Struct(&uploadRequest{FileName: "docket.jpg"})
	if err == nil {
		t.Fatal("Expected validation error")
	}

	var ve *errors.ValidationError
	if !stderrors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if ve.Message != "Missing required fields: fileType, clientId, userId" {
		t.Errorf("Unexpected message: %s", ve.Message)
	}
	if len(ve.Fields) != 3 {
		t.Errorf("Expected 3 fields, got %v", ve.Fields)
	}
}

func TestStruct_InvalidFileName(t *testing.T) {
	err := Struct(&uploadRequest{FileName: "../etc/passwd", FileType: "image/png", ClientID: "c", UserID: "u"})
	var ve *errors.ValidationError
	if !stderrors.As(err, &ve) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
	if ve.Message != "Invalid fields: fileName" {
		t.Errorf("Unexpected message: %s", ve.Message)
	}
}

func TestStruct_Valid(t *testing.T) {
	if err := Struct(&uploadRequest{FileName: "docket 1.jpg", FileType: "image/jpeg", ClientID: "c", UserID: "u"}); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestIsPlainFileName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"docket.jpg", true},
		{"Docket #4471?v=2 100%.jpg", true},
		{"", false},
		{"..", false},
		{"a/b.jpg", false},
		{"a\\b.jpg", false},
		{"docket\x00.jpg", false},
		{"docket\n.jpg", false},
		{"docket\x7f.jpg", false},
	}
	for _, tt := range tests {
		if got := IsPlainFileName(tt.name); got != tt.want {
			t.Errorf("IsPlainFileName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{" Owner@Cafe.co.nz ", "owner@cafe.co.nz", true},
		{"not-an-email", "", false},
		{"Cafe <owner@cafe.co.nz>", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeEmail(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeEmail(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

package pii

import (
	"reflect"
	"testing"
)

func TestExtractEmails(t *testing.T) {
	text := "Contact: jane.doe@example.com or jane.doe@example.com, backup jd+work@mail.co"
	f := Extract(text)
	want := []string{"jane.doe@example.com", "jd+work@mail.co"}
	if !reflect.DeepEqual(f.Emails, want) {
		t.Fatalf("expected %v, got %v", want, f.Emails)
	}
}

func TestExtractPhonesRequireTenDigits(t *testing.T) {
	text := "Call +1 (415) 555-0132 or the short code 555-0132"
	f := Extract(text)
	if len(f.Phones) != 1 {
		t.Fatalf("expected 1 phone, got %v", f.Phones)
	}
	if DigitCount(f.Phones[0]) < 10 {
		t.Fatalf("kept phone with too few digits: %q", f.Phones[0])
	}
}

func TestExtractLinks(t *testing.T) {
	text := "Profiles: https://linkedin.com/in/janedoe, https://github.com/janedoe."
	f := Extract(text)
	want := []string{"https://github.com/janedoe", "https://linkedin.com/in/janedoe"}
	if !reflect.DeepEqual(f.Links, want) {
		t.Fatalf("expected %v, got %v", want, f.Links)
	}
}

func TestExtractEmptyText(t *testing.T) {
	f := Extract("no contact details here")
	if !f.Empty() {
		t.Fatalf("expected empty findings, got %+v", f)
	}
}

func TestIsEmail(t *testing.T) {
	if !IsEmail("jane@example.com") {
		t.Fatal("expected valid email to match")
	}
	if IsEmail("not an email") {
		t.Fatal("expected plain text to not match")
	}
	if IsEmail("see jane@example.com for details") {
		t.Fatal("expected embedded email sentence to not match")
	}
}

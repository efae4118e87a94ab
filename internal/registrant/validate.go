package registrant

import (
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
)

// phonePattern allows an optional leading +, then digits, spaces, hyphens
// and parentheses, 8-20 characters.
const phonePattern = `^\+?[0-9\s\-()]{8,20}$`

const dateLayout = "2006-01-02"

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors accumulates every applicable failure so the caller can
// report them together instead of fixing one field per round trip.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, fe := range v {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(msgs, "; ")
}

// Submission is the raw registration body before normalization. The flat
// shape (street/city/postcode at top level) matches the public API.
type Submission struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DOB         string `json:"dob"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Postcode    string `json:"postcode"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Password    string `json:"password,omitempty"`
}

// Validate checks every rule and returns the accumulated failures, or nil.
// Rules are not short-circuited: a submission with three bad fields reports
// all three.
func (s Submission) Validate(today time.Time) ValidationErrors {
	var errs ValidationErrors
	add := func(field, message string) {
		errs = append(errs, FieldError{Field: field, Message: message})
	}

	if strings.TrimSpace(s.FirstName) == "" {
		add("firstName", "First name is required")
	}
	if strings.TrimSpace(s.LastName) == "" {
		add("lastName", "Last name is required")
	}

	if strings.TrimSpace(s.DOB) == "" {
		add("dob", "Date of birth is required")
	} else if dob, err := time.Parse(dateLayout, strings.TrimSpace(s.DOB)); err != nil {
		add("dob", "Date of birth must be a valid date")
	} else if !isAtLeast18(dob, today) {
		add("dob", "You must be at least 18 years old")
	}

	if strings.TrimSpace(s.Street) == "" {
		add("street", "Street address is required")
	}
	if strings.TrimSpace(s.City) == "" {
		add("city", "City is required")
	}
	if strings.TrimSpace(s.Postcode) == "" {
		add("postcode", "Postcode is required")
	}

	phone := strings.TrimSpace(s.PhoneNumber)
	if phone == "" {
		add("phoneNumber", "Phone number is required")
	} else if !govalidator.Matches(phone, phonePattern) {
		add("phoneNumber", "Please enter a valid phone number")
	}

	email := strings.TrimSpace(s.Email)
	if email == "" {
		add("email", "Email is required")
	} else if !govalidator.IsEmail(email) {
		add("email", "Please enter a valid email address")
	}

	if s.Password != "" && len(s.Password) < 8 {
		add("password", "Password must be at least 8 characters long")
	}

	return errs
}

// isAtLeast18 compares calendar dates, not elapsed time: someone born
// exactly 18 years ago today is eligible, one day younger is not. Using
// y/m/d subtraction sidesteps leap-year and timezone drift.
func isAtLeast18(dob, today time.Time) bool {
	cutoff := time.Date(today.Year()-18, today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	birth := time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	return !birth.After(cutoff)
}

// NormalizedEmail returns the email as stored: trimmed and lower-cased.
// Uniqueness checks are case-insensitive because of this normalization.
func (s Submission) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(s.Email))
}

// ParseDOB returns the parsed date of birth. Call Validate first.
func (s Submission) ParseDOB() (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s.DOB))
}

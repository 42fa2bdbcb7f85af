package validate

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// Ukrainian mobile numbers in international format
	phoneRe = regexp.MustCompile(`^\+38\d{10}$`)

	// OWASP validation regex
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9_+&*-]+(?:\.[a-zA-Z0-9_+&*-]+)*@(?:[a-zA-Z0-9-]+\.)+[a-zA-Z]{2,7}$`)
)

var (
	ErrInvalidPhone = errors.New("phone must be in format +38XXXXXXXXXX")
	ErrInvalidEmail = errors.New("email is not valid")
)

func Phone(phone string) error {
	if !phoneRe.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

// Handle is email if it contains '@', phone otherwise
func Handle(handle string) error {
	handle = strings.TrimSpace(handle)
	if strings.Contains(handle, "@") {
		return Email(handle)
	}
	return Phone(handle)
}

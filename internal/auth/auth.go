// Package auth validates account registrations and hashes passwords.
package auth

import (
	"errors"
	"strings"

	"churchledger/pkg/domain"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

// Registration is the input of the account registration form.
type Registration struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
	Confirm  string `validate:"required,eqfield=Password"`
	Email    string `validate:"required,email"`
}

// Normalize trims the username and email.
func (r Registration) Normalize() Registration {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// Validate reports the first failing check: presence of every field, then
// matching passwords, then the email shape.
func (r Registration) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var first validator.FieldError
	for _, fe := range fieldErrs {
		if first == nil || rank(fe) < rank(first) {
			first = fe
		}
	}
	return domain.Invalid(strings.ToLower(first.Field()), errorMessage(first))
}

func rank(fe validator.FieldError) int {
	switch fe.Tag() {
	case "required":
		return 0
	case "eqfield":
		return 1
	default:
		return 2
	}
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Please fill in all fields!"
	case "eqfield":
		return "Passwords do not match!"
	case "email":
		return "Please enter a valid email address!"
	default:
		return "Invalid value"
	}
}

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int
}

// NewHasher returns a hasher at the given cost; values outside bcrypt's
// range select the default cost.
func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (h Hasher) Hash(password string) (string, error) {
	cost := h.cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Verify reports whether password matches hash.
func (h Hasher) Verify(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

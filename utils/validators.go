package utils

import (
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var Validate *validator.Validate

func RegisterCustomValidators(v *validator.Validate) {
	_ = v.RegisterValidation("password", ValidatePasswordRule)
	_ = v.RegisterValidation("role", ValidateRoleRule)
}

// InitValidator registers the custom rules on both the standalone validator
// and gin's binding engine.
func InitValidator() {
	Validate = validator.New()
	RegisterCustomValidators(Validate)
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		RegisterCustomValidators(v)
	}
}

func ValidatePasswordRule(fl validator.FieldLevel) bool {
	return ValidatePassword(fl.Field().String())
}

func ValidateRoleRule(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "user", "admin", "rootadmin":
		return true
	}
	return false
}

// ValidatePassword: at least 6 characters, one number and one special character.
func ValidatePassword(password string) bool {
	hasNumber := false
	hasSpecial := false

	if len(password) < 6 {
		return false
	}

	for _, char := range password {
		switch {
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasNumber && hasSpecial
}

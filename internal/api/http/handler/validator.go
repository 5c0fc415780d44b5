package handler

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground validator to echo.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("mbti", validateMBTI)
	return &Validator{validate: v}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

var mbtiAxes = [4]string{"EI", "NS", "TF", "JP"}

// validateMBTI accepts four-letter MBTI types in either case.
func validateMBTI(fl validator.FieldLevel) bool {
	s := strings.ToUpper(fl.Field().String())
	if len(s) != len(mbtiAxes) {
		return false
	}
	for i, axis := range mbtiAxes {
		if !strings.ContainsRune(axis, rune(s[i])) {
			return false
		}
	}
	return true
}

// bind decodes the request body into req and validates it.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	return c.Validate(req)
}

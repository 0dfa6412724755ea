// Package models defines the data structures for the study partner matcher.
package models

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Common errors
var (
	ErrInvalidProfile     = errors.New("invalid profile")
	ErrMissingUID         = errors.New("uid cannot be empty")
	ErrInvalidRegion      = errors.New("unknown region")
	ErrDuplicateCandidate = errors.New("duplicate candidate uid")
	ErrProfileNotFound    = errors.New("profile not found")

	ErrNotificationsDisabled = errors.New("notifications disabled for profile")
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("region", func(fl validator.FieldLevel) bool {
			return Region(fl.Field().String()).IsValid()
		})
	})
	return validate
}

// ValidateProfile checks a profile at the data-access boundary. The profile
// should already be normalized. Returned errors wrap ErrInvalidProfile.
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("%w: nil profile", ErrInvalidProfile)
	}
	if strings.TrimSpace(p.UID) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, ErrMissingUID)
	}

	if err := profileValidator().Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				if fe.Tag() == "region" {
					return fmt.Errorf("%w: %w %q", ErrInvalidProfile, ErrInvalidRegion, p.Region)
				}
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(msgs, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	return nil
}

// ValidateRegistration validates sign-up data.
func ValidateRegistration(r *Registration) error {
	if err := profileValidator().Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if !NormalizeRegion(r.Region).IsValid() {
		return fmt.Errorf("%w: %w %q", ErrInvalidProfile, ErrInvalidRegion, r.Region)
	}
	return nil
}

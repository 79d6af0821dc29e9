package types

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// VerifyRequest is the body of a verification call. Rating stays raw so the engine can
// tell a missing rating from a non-integer one.
type VerifyRequest struct {
	Rating  json.RawMessage `json:"rating"`
	Comment string          `json:"comment,omitempty"`
}

// UpsertProfileRequest creates or updates the caller's personal info.
type UpsertProfileRequest struct {
	FullName string `json:"fullName" validate:"required,min=1,max=200"`
	Headline string `json:"headline,omitempty" validate:"max=300"`
}

// AddEducationRequest appends an education item.
type AddEducationRequest struct {
	Institute    string `json:"institute" validate:"required,min=1,max=200"`
	Degree       string `json:"degree,omitempty" validate:"max=200"`
	FieldOfStudy string `json:"fieldOfStudy,omitempty" validate:"max=200"`
	StartDate    *Date  `json:"startDate,omitempty"`
	EndDate      *Date  `json:"endDate,omitempty"`
}

// AddExperienceRequest appends an experience item.
type AddExperienceRequest struct {
	Company   string `json:"company" validate:"required,min=1,max=200"`
	RoleTitle string `json:"roleTitle" validate:"required,min=1,max=200"`
	StartDate *Date  `json:"startDate,omitempty"`
	EndDate   *Date  `json:"endDate,omitempty"`
}

// SetLineManagerRequest names the line manager for an experience item.
type SetLineManagerRequest struct {
	ManagerID string `json:"managerId" validate:"required,len=24,hexadecimal"`
}

var validate = validator.New()

// Validate validates the UpsertProfileRequest using the validator.
func (r *UpsertProfileRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the AddEducationRequest using the validator.
func (r *AddEducationRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the AddExperienceRequest using the validator.
func (r *AddExperienceRequest) Validate() error {
	return validate.Struct(r)
}

// Validate validates the SetLineManagerRequest using the validator.
func (r *SetLineManagerRequest) Validate() error {
	return validate.Struct(r)
}

// ValidationFailure converts a validator error into an ErrValidation naming the first
// failing field.
func ValidationFailure(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return &ErrValidation{Field: ve.Field(), Message: ve.Tag()}
	}
	return &ErrValidation{Field: "body", Message: "invalid request"}
}

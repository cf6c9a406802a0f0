package simplepublish

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SubmissionFields is the structured body of a profile or job submission
type SubmissionFields interface {
	Subject() SubjectType
}

// WorkHistoryEntry is one repeatable work history section of a profile
type WorkHistoryEntry struct {
	Company     string `json:"company" yaml:"company" validate:"required,max=200"`
	Role        string `json:"role" yaml:"role" validate:"required,max=200"`
	StartDate   string `json:"startDate,omitempty" yaml:"startDate,omitempty"`
	EndDate     string `json:"endDate,omitempty" yaml:"endDate,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" validate:"max=2000"`
}

// EducationEntry is one repeatable education section of a profile
type EducationEntry struct {
	Institution string `json:"institution" yaml:"institution" validate:"required,max=200"`
	Degree      string `json:"degree,omitempty" yaml:"degree,omitempty" validate:"max=200"`
	Year        string `json:"year,omitempty" yaml:"year,omitempty" validate:"omitempty,numeric,len=4"`
}

// ProfileFields describes a professional profile
type ProfileFields struct {
	Name            string             `json:"name" yaml:"name" validate:"required,max=120"`
	Title           string             `json:"title" yaml:"title" validate:"required,max=120"`
	Bio             string             `json:"bio,omitempty" yaml:"bio,omitempty" validate:"max=4000"`
	Skills          []string           `json:"skills,omitempty" yaml:"skills,omitempty" validate:"dive,required,max=60"`
	ExperienceLevel string             `json:"experienceLevel,omitempty" yaml:"experienceLevel,omitempty" validate:"omitempty,oneof=Entry Mid Senior Expert"`
	HourlyRate      string             `json:"hourlyRate,omitempty" yaml:"hourlyRate,omitempty" validate:"omitempty,numeric"`
	Location        string             `json:"location,omitempty" yaml:"location,omitempty" validate:"max=120"`
	Remote          bool               `json:"remote" yaml:"remote"`
	WorkHistory     []WorkHistoryEntry `json:"workHistory,omitempty" yaml:"workHistory,omitempty" validate:"dive"`
	Education       []EducationEntry   `json:"education,omitempty" yaml:"education,omitempty" validate:"dive"`
	Links           []string           `json:"links,omitempty" yaml:"links,omitempty" validate:"dive,url"`
}

// Subject implements SubmissionFields
func (ProfileFields) Subject() SubjectType { return SubjectProfile }

// JobFields describes a job posting. Budget amounts are numeric text.
type JobFields struct {
	Title           string   `json:"title" yaml:"title" validate:"required,max=120"`
	Description     string   `json:"description" yaml:"description" validate:"required,max=8000"`
	Category        string   `json:"category,omitempty" yaml:"category,omitempty" validate:"max=60"`
	Skills          []string `json:"skills" yaml:"skills" validate:"min=1,dive,required,max=60"`
	ExperienceLevel string   `json:"experienceLevel" yaml:"experienceLevel" validate:"required,oneof=Entry Mid Senior Expert"`
	BudgetMin       string   `json:"budgetMin" yaml:"budgetMin" validate:"required,numeric"`
	BudgetMax       string   `json:"budgetMax" yaml:"budgetMax" validate:"required,numeric"`
	Remote          bool     `json:"remote" yaml:"remote"`
	Duration        string   `json:"duration,omitempty" yaml:"duration,omitempty" validate:"max=60"`
	Deadline        string   `json:"deadline,omitempty" yaml:"deadline,omitempty"`
}

// Subject implements SubmissionFields
func (JobFields) Subject() SubjectType { return SubjectJob }

// Budget parses the numeric-as-text budget bounds
func (j JobFields) Budget() (lo, hi float64, err error) {
	lo, err = parseAmount("budgetMin", j.BudgetMin)
	if err != nil {
		return 0, 0, err
	}
	hi, err = parseAmount("budgetMax", j.BudgetMax)
	if err != nil {
		return 0, 0, err
	}
	return lo, hi, nil
}

func parseAmount(field, value string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &FieldError{Field: field, Reason: "must be a number"}
	}
	if amount < 0 {
		return 0, &FieldError{Field: field, Reason: "must not be negative"}
	}
	return amount, nil
}

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateFields checks the submission fields before anything is uploaded
func ValidateFields(fields SubmissionFields) error {
	if fields == nil {
		return &FieldError{Field: "fields", Reason: "required"}
	}
	if rv := reflect.ValueOf(fields); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return &FieldError{Field: "fields", Reason: "required"}
	}

	if err := fieldValidator.Struct(fields); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return &FieldError{Field: fieldPath(fe), Reason: describeTag(fe)}
		}
		return fmt.Errorf("failed to validate fields: %w", err)
	}

	var job *JobFields
	switch f := fields.(type) {
	case JobFields:
		job = &f
	case *JobFields:
		job = f
	}
	if job != nil {
		lo, hi, err := job.Budget()
		if err != nil {
			return err
		}
		if lo > hi {
			return &FieldError{Field: "budgetMax", Reason: "must be greater than or equal to budgetMin"}
		}
	}

	return nil
}

// fieldPath drops the struct name from the validator namespace
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s long", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s long", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "numeric":
		return "must be a number"
	case "url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// DecodeFields decodes raw JSON fields into the type for subject
func DecodeFields(subject SubjectType, raw json.RawMessage) (SubmissionFields, error) {
	switch subject {
	case SubjectProfile:
		var fields ProfileFields
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, err
			}
		}
		return &fields, nil
	case SubjectJob:
		var fields JobFields
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &fields); err != nil {
				return nil, err
			}
		}
		return &fields, nil
	default:
		return nil, fmt.Errorf("unknown subject type %q", subject)
	}
}

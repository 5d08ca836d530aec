package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type credentials struct {
	Username string `validate:"required,max=150"`
	Password string `validate:"required,max=150"`
}

type taskInput struct {
	Description string `validate:"required,max=200"`
}

// ValidationError lists human readable problems with user input. It matches ErrInvalidInput.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidInput, strings.Join(e.Problems, ", "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// Message renders the problems as a sentence for end users.
func (e *ValidationError) Message() string {
	return strings.Join(e.Problems, ". ")
}

func validationError(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fe.Field()+" is required")
		case "max":
			problems = append(problems, fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param()))
		default:
			problems = append(problems, fe.Field()+" is invalid")
		}
	}
	return &ValidationError{Problems: problems}
}

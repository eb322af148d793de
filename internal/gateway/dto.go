package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"shareit/internal/domain"
	"shareit/internal/models"

	"github.com/go-playground/validator/v10"
)

type UserCreateDTO struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"required,email"`
}

type UserUpdateDTO struct {
	Name  *string `json:"name"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type ItemCreateDTO struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
	Available   *bool  `json:"available" validate:"required"`
	RequestID   *int64 `json:"requestId" validate:"omitempty,gt=0"`
}

type ItemUpdateDTO struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Available   *bool   `json:"available"`
}

type CommentDTO struct {
	Text string `json:"text" validate:"notblank"`
}

type RequestDTO struct {
	Description string `json:"description" validate:"notblank"`
}

// BookingDTO is a booking as sent by clients. Times accept RFC 3339 or a
// zone-less local layout read as UTC.
type BookingDTO struct {
	ItemID *int64    `json:"itemId" validate:"required,gt=0"`
	Start  time.Time `json:"start" validate:"required,present_or_future"`
	End    time.Time `json:"end" validate:"required,future,timecross"`
}

func (b *BookingDTO) UnmarshalJSON(data []byte) error {
	var raw struct {
		ItemID *int64            `json:"itemId"`
		Start  *models.Timestamp `json:"start"`
		End    *models.Timestamp `json:"end"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	b.ItemID = raw.ItemID
	if raw.Start != nil {
		b.Start = raw.Start.Time
	}
	if raw.End != nil {
		b.End = raw.End.Time
	}
	return nil
}

// Validator checks request DTOs and renders failures as client messages.
type Validator struct {
	v   *validator.Validate
	now func() time.Time
}

func NewValidator() *Validator {
	val := &Validator{v: validator.New(), now: time.Now}

	val.v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(val.v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(val.v, "present_or_future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && !t.Before(val.now().Add(-time.Second))
	})
	mustRegister(val.v, "future", func(fl validator.FieldLevel) bool {
		t, ok := fl.Field().Interface().(time.Time)
		return ok && t.After(val.now())
	})
	// timecross on the end field requires the sibling Start to be earlier.
	mustRegister(val.v, "timecross", func(fl validator.FieldLevel) bool {
		end, ok := fl.Field().Interface().(time.Time)
		if !ok {
			return false
		}
		start, ok := reflect.Indirect(fl.Parent()).FieldByName("Start").Interface().(time.Time)
		return ok && start.Before(end)
	})

	return val
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates s and returns a domain validation error describing the
// first failing field.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return domain.Validation("Invalid request: %s", err.Error())
	}
	return domain.Validation("%s", fieldMessage(fieldErrs[0]))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "timecross":
		return "Wrong timecodes."
	case "required", "notblank":
		return fmt.Sprintf("Field %s must not be blank.", fe.Field())
	case "email":
		return fmt.Sprintf("Field %s must be a valid email.", fe.Field())
	case "present_or_future":
		return fmt.Sprintf("Field %s must not be in the past.", fe.Field())
	case "future":
		return fmt.Sprintf("Field %s must be in the future.", fe.Field())
	default:
		return fmt.Sprintf("Field %s failed on the %s rule.", fe.Field(), fe.Tag())
	}
}

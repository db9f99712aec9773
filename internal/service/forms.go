package service

import (
	"reflect"
	"regexp"
	"strings"

	"bookcourier/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	validate = newValidator()

	strongPassword = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
	passwordRules  = []*regexp.Regexp{
		regexp.MustCompile(`[a-z]`),
		regexp.MustCompile(`[A-Z]`),
		regexp.MustCompile(`\d`),
		regexp.MustCompile(`[@$!%*?&]`),
	}
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if !strongPassword.MatchString(s) {
			return false
		}
		for _, re := range passwordRules {
			if !re.MatchString(s) {
				return false
			}
		}
		return true
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

var fieldMessages = map[string]string{
	"required":       "is required",
	"email":          "must be a valid email",
	"min":            "is too short",
	"max":            "is too long",
	"gt":             "must be greater than zero",
	"gte":            "must not be negative",
	"oneof":          "has an unsupported value",
	"eqfield":        "does not match",
	"strongpassword": "must be 8+ chars, include upper, lower, number & special char",
}

// check validates form and converts violations into a VALIDATION_ERROR keyed
// by JSON field name.
func check(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return apperr.Validation(err.Error(), nil)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		if fe.Tag() == "min" && fe.Kind() != reflect.String {
			msg = "is too small"
		}
		if fe.Tag() == "max" && fe.Kind() != reflect.String {
			msg = "is too large"
		}
		fields[fe.Field()] = msg
	}
	return apperr.Validation("Please correct the highlighted fields", fields)
}

// LoginForm signs in with email and password.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpForm registers a new account; the photo is uploaded separately.
type SignUpForm struct {
	Name            string `json:"name" validate:"required,max=80"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,strongpassword"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// OrderForm is the delivery information of a new order.
type OrderForm struct {
	Phone   string `json:"phone" validate:"required,min=3,max=20"`
	Address string `json:"address" validate:"required,min=3,max=200"`
}

// ReviewForm rates a delivered order's book.
type ReviewForm struct {
	OrderID string `json:"orderId" validate:"required"`
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// BookForm creates or edits a book. Image is the already hosted URL, if any.
type BookForm struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Author      string          `json:"author" validate:"required,max=120"`
	Price       decimal.Decimal `json:"price" validate:"gt=0"`
	Quantity    int             `json:"quantity" validate:"gte=0"`
	Category    string          `json:"category" validate:"required"`
	Status      string          `json:"status" validate:"required,oneof=published unpublished"`
	Description string          `json:"description" validate:"max=5000"`
	Image       string          `json:"image" validate:"omitempty,url"`
}

// ProfileForm changes the display name.
type ProfileForm struct {
	Name string `json:"name" validate:"required,max=80"`
}

// BookStatusForm publishes or unpublishes a book.
type BookStatusForm struct {
	Status string `json:"status" validate:"required,oneof=published unpublished"`
}

// RoleForm assigns a role to a user.
type RoleForm struct {
	Role string `json:"role" validate:"required,oneof=customer librarian admin"`
}

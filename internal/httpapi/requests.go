package httpapi

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/PabloPavan/snipshare_api/internal/apperrors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.String {
			return false
		}
		return strings.TrimSpace(field.String()) != ""
	})
}

type SnippetSubmitDTO struct {
	Title    string   `json:"title" validate:"required,notblank,max=200"`
	Snip     string   `json:"snip" validate:"required,notblank,max=250000"`
	Language string   `json:"language" validate:"omitempty,max=32"`
	Tags     []string `json:"tags" validate:"max=20,dive,max=32"`
}

func (r *SnippetSubmitDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"Title": {
				"required": "title and snip are required",
				"notblank": "title and snip are required",
				"max":      "title is too long",
			},
			"Snip": {
				"required": "title and snip are required",
				"notblank": "title and snip are required",
				"max":      "snip is too long",
			},
			"Language": {
				"max": "invalid language",
			},
			"Tags": {
				"max": "too many tags",
			},
			"Tags[]": {
				"max": "tag is too long",
			},
		}, "invalid request")
	}
	return nil
}

type CommentCreateDTO struct {
	SnipID  string `json:"snip_id" validate:"required,notblank"`
	Comment string `json:"comment" validate:"required,notblank,max=2000"`
}

func (r *CommentCreateDTO) Validate() error {
	if err := validate.Struct(r); err != nil {
		return validationMessage(err, map[string]map[string]string{
			"SnipID": {
				"*": "snip_id is required",
			},
			"Comment": {
				"required": "comment is required",
				"notblank": "comment is required",
				"max":      "comment is too long",
			},
		}, "invalid request")
	}
	return nil
}

type SubmitResponse struct {
	SnipID string `json:"snip_id"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// validationMessage maps the first failing field and rule to a message and
// reports it as invalid input. Slice elements are looked up as "Field[]".
func validationMessage(err error, messages map[string]map[string]string, fallback string) error {
	var valErrs validator.ValidationErrors
	if !errors.As(err, &valErrs) {
		return apperrors.New(apperrors.KindInvalidInput, fallback)
	}
	for _, valErr := range valErrs {
		field := valErr.StructField()
		if i := strings.IndexByte(field, '['); i >= 0 {
			field = field[:i] + "[]"
		}
		if fieldMessages, ok := messages[field]; ok {
			if msg, ok := fieldMessages[valErr.Tag()]; ok {
				return apperrors.New(apperrors.KindInvalidInput, msg)
			}
			if msg, ok := fieldMessages["*"]; ok {
				return apperrors.New(apperrors.KindInvalidInput, msg)
			}
		}
	}
	return apperrors.New(apperrors.KindInvalidInput, fallback)
}

package validator

import (
	"errors"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/quizsmith/quizsmith-backend/internal/autosave"
)

// maxOptionsPerQuestion bounds the parsed option list accepted over
// REST. The editor stream normalizes instead of rejecting.
const maxOptionsPerQuestion = 20

// trans translates validation failures into English field messages.
var trans ut.Translator

// Setup configures Gin's binding engine: JSON tag names in error
// messages, English translations, and the optionlist rule for question
// option strings. Call once at startup, before the router is built.
func Setup() {
	v, ok := binding.Validator.Engine().(*govalidator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("optionlist", func(fl govalidator.FieldLevel) bool {
		return len(autosave.ParseOptions(fl.Field().String())) <= maxOptionsPerQuestion
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, trans)
	_ = v.RegisterTranslation("optionlist", trans,
		func(ut ut.Translator) error {
			return ut.Add("optionlist", "{0} may hold at most 20 options", true)
		},
		func(ut ut.Translator, fe govalidator.FieldError) string {
			t, _ := ut.T("optionlist", fe.Field())
			return t
		},
	)
}

// TranslateErrors flattens a binding error into field name to message.
// Non-validation errors (malformed JSON and the like) come back under
// the single key "detail".
func TranslateErrors(err error) map[string]string {
	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return map[string]string{"detail": err.Error()}
	}

	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Translate(trans)
	}
	return fields
}

// Bind decodes and validates the JSON body into dst. A nil return means
// dst is populated; otherwise the map is ready for a validation
// response.
func Bind(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindJSON(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}

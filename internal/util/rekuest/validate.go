package rekuest

import (
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"exusiai.dev/crm-backup/internal/pkg/apierr"
)

var (
	Validate = NewValidator()

	translator ut.Translator
)

func init() {
	locale := en.New()
	translator, _ = ut.New(locale, locale).GetTranslator("en")

	if err := enTranslations.RegisterDefaultTranslations(Validate, translator); err != nil {
		log.Warn().Err(err).Str("locale", "en").Msg("could not register translation")
	}

	err := Validate.RegisterTranslation("identifier", translator, func(ut ut.Translator) error {
		return ut.Add("identifier", "{0} must be a lower snake case identifier", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("identifier", fe.Field())
		return t
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not register translation for function identifier")
	}

	err = Validate.RegisterTranslation("subject", translator, func(ut ut.Translator) error {
		return ut.Add("subject", "{0} must be a user id made of letters, digits, '_', '@', '.' or '-'", true)
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("subject", fe.Field())
		return t
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not register translation for function subject")
	}

	err = Validate.RegisterTranslation("caseinsensitiveoneof", translator, func(ut ut.Translator) error {
		return nil
	}, func(ut ut.Translator, fe validator.FieldError) string {
		t, _ := ut.T("oneof", fe.Field(), fe.Param())
		return t
	})
	if err != nil {
		log.Warn().Err(err).Msg("could not register translation for function caseinsensitiveoneof")
	}
}

type ErrorResponse struct {
	Field     string `json:"field,omitempty"`
	Violation string `json:"violation"`
	Message   string `json:"message"`
}

func translate(ve validator.ValidationErrors) []*ErrorResponse {
	trans := make([]*ErrorResponse, 0, len(ve))
	for _, fe := range ve {
		trans = append(trans, &ErrorResponse{
			Field:     fe.Field(),
			Violation: fe.Tag(),
			Message:   fe.Translate(translator),
		})
	}
	return trans
}

func validateStruct(s any) error {
	err := Validate.Struct(s)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		return apierr.NewInvalidViolations(translate(ve))
	}
	return apierr.ErrInvalidReq.Msg("invalid request: %s", err)
}

// ValidBody parses the request body into dest and validates it. An empty body
// leaves dest at its zero value before validation. dest must be a pointer.
func ValidBody(ctx *fiber.Ctx, dest any) error {
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(dest); err != nil {
			return apierr.ErrInvalidReq.Msg("invalid request: %s", err)
		}
	}

	return validateStruct(dest)
}

func ValidStruct(dest any) error {
	return validateStruct(dest)
}

func ValidVar(field any, tag string) error {
	err := Validate.Var(field, tag)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		return apierr.NewInvalidViolations(translate(ve))
	}
	return apierr.ErrInvalidReq.Msg("invalid request: %s", err)
}

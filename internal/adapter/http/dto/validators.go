package dto

import (
	"html"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	safeStringRe = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]+$`)
	cpfRe        = regexp.MustCompile(`^\d{11}$`)
	phoneRe      = regexp.MustCompile(`^\+55\d{10,11}$`)
	emailRe      = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	randomKeyRe  = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("safe_id", validateSafeID)
		_ = v.RegisterValidation("safe_url", validateSafeURL)
		v.RegisterStructValidation(validateWithdrawalCreate, WithdrawalCreateRequest{})
	}
}

// validateSafeID allows alphanumeric, underscore, dash, and dot.
func validateSafeID(fl validator.FieldLevel) bool {
	return safeStringRe.MatchString(fl.Field().String())
}

// validateSafeURL accepts only http/https URLs.
func validateSafeURL(fl validator.FieldLevel) bool {
	raw := fl.Field().String()
	if raw == "" {
		return true // optional field; use "required" tag to enforce presence
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// validateWithdrawalCreate checks the pix key format against its declared kind.
func validateWithdrawalCreate(sl validator.StructLevel) {
	req := sl.Current().Interface().(WithdrawalCreateRequest)
	if !ValidPixKey(req.PayoutKeyKind, req.PayoutKey) {
		sl.ReportError(req.PayoutKey, "PayoutKey", "payout_key", "pix_key", req.PayoutKeyKind)
	}
}

// ValidPixKey reports whether key is a plausible pix key of the given kind.
// CPF: 11 digits. Phone: +55 plus 10-11 digits. Random: UUID format.
func ValidPixKey(kind, key string) bool {
	switch kind {
	case "cpf":
		return cpfRe.MatchString(key)
	case "email":
		return emailRe.MatchString(key)
	case "phone":
		return phoneRe.MatchString(key)
	case "random":
		return randomKeyRe.MatchString(key)
	default:
		return false
	}
}

// SanitizeStruct trims whitespace and HTML-escapes every exported string
// field (including *string) of a struct pointer.
func SanitizeStruct(v interface{}) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return
	}
	sanitizeFields(rv.Elem())
}

func sanitizeFields(rv reflect.Value) {
	for i := 0; i < rv.NumField(); i++ {
		f := rv.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.String:
			f.SetString(sanitize(f.String()))
		case reflect.Ptr:
			if f.IsNil() {
				continue
			}
			elem := f.Elem()
			if elem.Kind() == reflect.String {
				elem.SetString(sanitize(elem.String()))
			}
		}
	}
}

func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

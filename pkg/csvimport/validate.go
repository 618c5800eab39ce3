package csvimport

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	FieldCorreo   = "correo"
	FieldNombre   = "nombre"
	FieldTelefono = "telefono"
	FieldCiudad   = "ciudad"
	FieldNotas    = "notas"
)

const (
	msgCorreoRequired   = "El correo es requerido"
	msgCorreoInvalid    = "El correo debe ser un email válido"
	msgNombreRequired   = "El nombre es requerido"
	msgTelefonoRequired = "El teléfono es requerido"
	msgTelefonoDigits   = "El teléfono debe contener solo números"
	msgCiudadRequired   = "La ciudad es requerida"
	msgCorreoTooLong    = "El correo no puede superar 255 caracteres"
	msgNombreTooLong    = "El nombre no puede superar 255 caracteres"
	msgTelefonoTooLong  = "El teléfono no puede superar 64 caracteres"
	msgCiudadTooLong    = "La ciudad no puede superar 255 caracteres"
)

// Column widths of the contacts table.
const (
	maxTextLen  = 255
	maxPhoneLen = 64
)

var (
	emailValidator = validator.New()
	digitsOnly     = regexp.MustCompile(`^[0-9]+$`)
)

// Record is a fully validated, normalized contact row.
type Record struct {
	Correo   string
	Nombre   string
	Telefono string
	Ciudad   string
	Notas    *string
}

// FieldViolation lists every failed rule for one field of one row. Value is
// the cell as it appeared in the file.
type FieldViolation struct {
	Field    string
	Value    string
	Messages []string
}

type fieldRule struct {
	field string
	check func(value string) []string
}

// rowRules run in this order, which is also the order of reported violations.
var rowRules = []fieldRule{
	{FieldCorreo, combine(checkCorreo, maxLength(maxTextLen, msgCorreoTooLong))},
	{FieldNombre, combine(required(msgNombreRequired), maxLength(maxTextLen, msgNombreTooLong))},
	{FieldTelefono, combine(checkTelefono, maxLength(maxPhoneLen, msgTelefonoTooLong))},
	{FieldCiudad, combine(required(msgCiudadRequired), maxLength(maxTextLen, msgCiudadTooLong))},
}

// ValidateRow evaluates every rule on values. The Record is only meaningful
// when no violations are returned.
func ValidateRow(values map[string]string) (Record, []FieldViolation) {
	var violations []FieldViolation
	for _, rule := range rowRules {
		raw := values[rule.field]
		if msgs := rule.check(strings.TrimSpace(raw)); len(msgs) > 0 {
			violations = append(violations, FieldViolation{Field: rule.field, Value: raw, Messages: msgs})
		}
	}
	rec := Record{
		Correo:   strings.TrimSpace(values[FieldCorreo]),
		Nombre:   strings.TrimSpace(values[FieldNombre]),
		Telefono: strings.TrimSpace(values[FieldTelefono]),
		Ciudad:   strings.TrimSpace(values[FieldCiudad]),
	}
	if notas := strings.TrimSpace(values[FieldNotas]); notas != "" {
		rec.Notas = &notas
	}
	return rec, violations
}

func required(msg string) func(string) []string {
	return func(v string) []string {
		if v == "" {
			return []string{msg}
		}
		return nil
	}
}

func maxLength(n int, msg string) func(string) []string {
	return func(v string) []string {
		if utf8.RuneCountInString(v) > n {
			return []string{msg}
		}
		return nil
	}
}

func combine(checks ...func(string) []string) func(string) []string {
	return func(v string) []string {
		var msgs []string
		for _, check := range checks {
			msgs = append(msgs, check(v)...)
		}
		return msgs
	}
}

func checkCorreo(v string) []string {
	if v == "" {
		return []string{msgCorreoRequired, msgCorreoInvalid}
	}
	if !isEmail(v) {
		return []string{msgCorreoInvalid}
	}
	return nil
}

func checkTelefono(v string) []string {
	if v == "" {
		return []string{msgTelefonoRequired, msgTelefonoDigits}
	}
	if !digitsOnly.MatchString(v) {
		return []string{msgTelefonoDigits}
	}
	return nil
}

// isEmail requires a top-level domain on top of the validator's email shape,
// so "a@localhost" is rejected.
func isEmail(v string) bool {
	if emailValidator.Var(v, "required,email") != nil {
		return false
	}
	at := strings.LastIndexByte(v, '@')
	domain := v[at+1:]
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

package csvimport

import "contactos/pkg/apperr"

// RequiredHeaders must all be present in the header row, in any order.
var RequiredHeaders = []string{FieldCorreo, FieldNombre, FieldTelefono, FieldCiudad}

// OptionalHeaders may be present; they are never required.
var OptionalHeaders = []string{FieldNotas}

// CheckHeaders reports every missing required header at once.
func CheckHeaders(header []string) error {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, req := range RequiredHeaders {
		if _, ok := present[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return apperr.MissingHeaders(missing)
	}
	return nil
}

package csvimport

import (
	"io"

	"contactos/models"
	"contactos/pkg/apperr"
)

// Outcome is the result of validating a whole file.
type Outcome struct {
	Records []Record
	Errors  []apperr.RowError
}

// Valid reports whether no row failed validation.
func (o *Outcome) Valid() bool { return len(o.Errors) == 0 }

// Add validates one row and records either its Record or its violations.
func (o *Outcome) Add(row Row) {
	rec, violations := ValidateRow(row.Values)
	if len(violations) == 0 {
		o.Records = append(o.Records, rec)
		return
	}
	for _, v := range violations {
		o.Errors = append(o.Errors, apperr.RowError{
			Row:      row.Line,
			Field:    v.Field,
			Value:    v.Value,
			Messages: v.Messages,
		})
	}
}

// Contacts converts the valid records into unsaved contacts, in file order.
func (o *Outcome) Contacts() []models.Contact {
	out := make([]models.Contact, 0, len(o.Records))
	for _, r := range o.Records {
		out = append(out, models.Contact{
			Correo:   r.Correo,
			Nombre:   r.Nombre,
			Telefono: r.Telefono,
			Ciudad:   r.Ciudad,
			Notas:    r.Notas,
		})
	}
	return out
}

// Aggregate validates first and then every remaining row of src. A failing
// row never stops the scan; only a read error does.
func Aggregate(first Row, src RowSource) (*Outcome, error) {
	out := &Outcome{}
	out.Add(first)
	for {
		row, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out.Add(row)
	}
}

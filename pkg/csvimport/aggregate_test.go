package csvimport

import (
	"strings"
	"testing"
)

func aggregateCSV(t *testing.T, data string) *Outcome {
	t.Helper()
	r := NewReader(strings.NewReader(data))
	first, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	out, err := Aggregate(first, r)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	return out
}

func TestAggregateCollectsEveryRow(t *testing.T) {
	out := aggregateCSV(t, "correo,nombre,telefono,ciudad\n"+
		"a@b.com,Ana,123,Lima\n"+
		"bad,Bo,12a,X\n"+
		"c@d.com,Carla,456,Cusco\n"+
		"d@e.com,,789,Arequipa\n")

	if out.Valid() {
		t.Fatal("expected invalid outcome")
	}
	if len(out.Records) != 2 {
		t.Errorf("records = %d, want 2", len(out.Records))
	}
	want := []struct {
		row   int
		field string
	}{{3, "correo"}, {3, "telefono"}, {5, "nombre"}}
	if len(out.Errors) != len(want) {
		t.Fatalf("errors = %+v", out.Errors)
	}
	for i, w := range want {
		if out.Errors[i].Row != w.row || out.Errors[i].Field != w.field {
			t.Errorf("error %d = %+v, want row %d field %s", i, out.Errors[i], w.row, w.field)
		}
	}
}

func TestAggregateAllValid(t *testing.T) {
	out := aggregateCSV(t, "correo,nombre,telefono,ciudad,notas\n"+
		"a@b.com,Ana,123,Lima,\n"+
		"c@d.com,Carla,456,Cusco,cliente\n")
	if !out.Valid() || len(out.Records) != 2 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	contacts := out.Contacts()
	if contacts[0].Correo != "a@b.com" || contacts[0].Notas != nil {
		t.Errorf("first contact = %+v", contacts[0])
	}
	if contacts[1].Notas == nil || *contacts[1].Notas != "cliente" {
		t.Errorf("second contact notas = %v", contacts[1].Notas)
	}
}

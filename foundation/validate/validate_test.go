package validate_test

import (
	"testing"

	"github.com/ardanlabs/blockvault/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Check(t *testing.T) {
	type request struct {
		Data       string `json:"data" validate:"required"`
		Difficulty uint   `json:"difficulty" validate:"max=64"`
	}

	t.Log("Given the need to validate a request model.")
	{
		if err := validate.Check(request{Data: "x", Difficulty: 4}); err != nil {
			t.Fatalf("\t%s\tShould accept a valid model: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept a valid model.", success)

		err := validate.Check(request{Difficulty: 65})
		if !validate.IsFieldErrors(err) {
			t.Fatalf("\t%s\tShould get field errors: %v", failed, err)
		}
		t.Logf("\t%s\tShould get field errors.", success)

		fields := validate.GetFieldErrors(err).Fields()
		for _, name := range []string{"data", "difficulty"} {
			if _, exists := fields[name]; !exists {
				t.Fatalf("\t%s\tShould report the json name %q: %v", failed, name, fields)
			}
		}
		t.Logf("\t%s\tShould report the json names.", success)
	}
}

func Test_Var(t *testing.T) {
	t.Log("Given the need to validate a single value.")
	{
		if err := validate.Var("type", "full", "oneof=blockchain miningHistory full"); err != nil {
			t.Fatalf("\t%s\tShould accept a known value: %v", failed, err)
		}
		t.Logf("\t%s\tShould accept a known value.", success)

		err := validate.Var("type", "wallets", "oneof=blockchain miningHistory full")
		fields := validate.GetFieldErrors(err).Fields()
		if _, exists := fields["type"]; !exists {
			t.Fatalf("\t%s\tShould name the field: %v", failed, err)
		}
		t.Logf("\t%s\tShould name the field.", success)
	}
}

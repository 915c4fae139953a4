package signature_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ardanlabs/blockvault/foundation/blockchain/signature"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Fingerprint(t *testing.T) {
	value := struct {
		Name string
	}{
		Name: "Bill",
	}

	t.Log("Given the need to fingerprint a value.")
	{
		fp, err := signature.Fingerprint(value)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to fingerprint the value: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to fingerprint the value.", success)

		if len(fp) != 64 {
			t.Fatalf("\t%s\tShould get back a 64 character digest: got %d", failed, len(fp))
		}
		t.Logf("\t%s\tShould get back a 64 character digest.", success)

		if strings.Trim(fp, "0123456789abcdef") != "" {
			t.Fatalf("\t%s\tShould get back a lowercase hex digest: %s", failed, fp)
		}
		t.Logf("\t%s\tShould get back a lowercase hex digest.", success)

		fp2, err := signature.Fingerprint(value)
		if err != nil {
			t.Fatalf("\t%s\tShould be able to fingerprint the value twice: %v", failed, err)
		}

		if fp != fp2 {
			t.Logf("\t%s\tgot: %s", failed, fp2)
			t.Logf("\t%s\texp: %s", failed, fp)
			t.Fatalf("\t%s\tShould get back the same fingerprint twice.", failed)
		}
		t.Logf("\t%s\tShould get back the same fingerprint twice.", success)

		if !signature.Match(value, fp) {
			t.Fatalf("\t%s\tShould match the value against its fingerprint.", failed)
		}
		t.Logf("\t%s\tShould match the value against its fingerprint.", success)
	}
}

func Test_FingerprintTamper(t *testing.T) {
	type record struct {
		Index uint64 `json:"index"`
		Data  string `json:"data"`
	}

	org := record{Index: 1, Data: "genesis"}
	fp, err := signature.Fingerprint(org)
	if err != nil {
		t.Fatalf("Should be able to fingerprint the value: %s", err)
	}

	tampered := org
	tampered.Data = "genesis!"

	if signature.Match(tampered, fp) {
		t.Fatalf("Should not match a changed value against the original fingerprint.")
	}
}

func Test_FingerprintSerialization(t *testing.T) {
	tt := []struct {
		name  string
		value any
	}{
		{name: "channel", value: make(chan int)},
		{name: "func", value: func() {}},
		{name: "nested", value: map[string]any{"fn": func() {}}},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			_, err := signature.Fingerprint(tst.value)
			if !errors.Is(err, signature.ErrSerialization) {
				t.Logf("Test %s:\tgot: %v", tst.name, err)
				t.Fatalf("Test %s:\tShould get back a serialization error.", tst.name)
			}

			if signature.Match(tst.value, "") {
				t.Fatalf("Test %s:\tShould not match a value that can't be serialized.", tst.name)
			}
		}

		t.Run(tst.name, f)
	}
}

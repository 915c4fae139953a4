package cmd

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ardanlabs/blockvault/foundation/blockchain/persist"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// execute runs the admin program with the arguments against the store.
func execute(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCmd("test")
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--db", dbPath, "--genesis", filepath.Join(t.TempDir(), "missing.json")}, args...))

	err := root.Execute()
	return out.String(), err
}

func stats(t *testing.T, dbPath string) persist.Stats {
	t.Helper()

	out, err := execute(t, dbPath, "stats")
	if err != nil {
		t.Fatalf("\t%s\tShould be able to read the stats: %v", failed, err)
	}

	var st persist.Stats
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("\t%s\tShould be able to decode the stats: %v", failed, err)
	}

	return st
}

func Test_AdminCommands(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "vault.db")
	bundle := filepath.Join(t.TempDir(), "bundle.json")

	t.Log("Given the need to administer a stored vault.")
	{
		t.Logf("\tTest 0:\tWhen mining two blocks.")
		{
			for _, data := range []string{"first", "second"} {
				out, err := execute(t, dbPath, "mine", "--data", data, "--difficulty", "1")
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to mine %q: %v", failed, data, err)
				}
				if !strings.Contains(out, "mined") {
					t.Fatalf("\t%s\tTest 0:\tShould report the mined block: %s", failed, out)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould be able to mine the blocks.", success)

			if st := stats(t, dbPath); st.Blocks != 2 || st.MiningHistory != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould count 2 blocks and 2 records: %+v", failed, st)
			}
			t.Logf("\t%s\tTest 0:\tShould count 2 blocks and 2 records.", success)

			out, err := execute(t, dbPath, "verify")
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould verify the chain: %v\n%s", failed, err, out)
			}
			t.Logf("\t%s\tTest 0:\tShould verify the chain.", success)
		}

		t.Logf("\tTest 1:\tWhen exporting, clearing and importing.")
		{
			if _, err := execute(t, dbPath, "export", "--out", bundle); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to export: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould be able to export.", success)

			if _, err := execute(t, dbPath, "clear"); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould refuse to clear without confirmation.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould refuse to clear without confirmation.", success)

			if _, err := execute(t, dbPath, "clear", "--yes"); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to clear: %v", failed, err)
			}
			if st := stats(t, dbPath); st.Blocks != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould have no blocks after clear: %+v", failed, st)
			}
			t.Logf("\t%s\tTest 1:\tShould have no blocks after clear.", success)

			if _, err := execute(t, dbPath, "import", bundle); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to import: %v", failed, err)
			}
			if st := stats(t, dbPath); st.Blocks != 2 || st.MiningHistory != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould restore 2 blocks and 2 records: %+v", failed, st)
			}
			t.Logf("\t%s\tTest 1:\tShould restore 2 blocks and 2 records.", success)
		}

		t.Logf("\tTest 2:\tWhen working with snapshots.")
		{
			out, err := execute(t, dbPath, "backups", "list", "blockchain")
			if err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be able to list snapshots: %v", failed, err)
			}
			if !strings.Contains(out, "blockchain_") {
				t.Fatalf("\t%s\tTest 2:\tShould list the automatic snapshots: %s", failed, out)
			}
			t.Logf("\t%s\tTest 2:\tShould list the automatic snapshots.", success)

			if _, err := execute(t, dbPath, "backups", "list", "wallets"); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould reject an unknown snapshot type.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould reject an unknown snapshot type.", success)

			if _, err := execute(t, dbPath, "restore", "blockchain_1"); err == nil {
				t.Fatalf("\t%s\tTest 2:\tShould fail to restore a missing snapshot.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould fail to restore a missing snapshot.", success)
		}
	}
}

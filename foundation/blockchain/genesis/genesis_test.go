package genesis_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ardanlabs/blockvault/foundation/blockchain/genesis"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Load(t *testing.T) {
	t.Log("Given the need to load the genesis file.")
	{
		dir := t.TempDir()

		t.Log("\tWhen the file does not exist.")
		{
			g, err := genesis.Load(filepath.Join(dir, "missing.json"))
			if err != nil {
				t.Fatalf("\t%s\tShould not get an error: %v", failed, err)
			}

			if g.Difficulty != 4 || g.MiningReward != 50 {
				t.Fatalf("\t%s\tShould get the default genesis: %+v", failed, g)
			}
			t.Logf("\t%s\tShould get the default genesis.", success)
		}

		t.Log("\tWhen the file sets some values.")
		{
			path := filepath.Join(dir, "genesis.json")
			if err := os.WriteFile(path, []byte(`{"difficulty": 2, "mining_reward": 700}`), 0600); err != nil {
				t.Fatalf("\t%s\tShould be able to write the file: %v", failed, err)
			}

			g, err := genesis.Load(path)
			if err != nil {
				t.Fatalf("\t%s\tShould be able to load the file: %v", failed, err)
			}

			if g.Difficulty != 2 || g.MiningReward != 700 {
				t.Fatalf("\t%s\tShould get the values from the file: %+v", failed, g)
			}
			t.Logf("\t%s\tShould get the values from the file.", success)

			if g.Data != "genesis" || g.Workers != runtime.NumCPU() {
				t.Fatalf("\t%s\tShould get defaults for missing values: %+v", failed, g)
			}
			t.Logf("\t%s\tShould get defaults for missing values.", success)
		}

		t.Log("\tWhen the file is malformed.")
		{
			path := filepath.Join(dir, "bad.json")
			os.WriteFile(path, []byte(`{"difficulty":`), 0600)

			if _, err := genesis.Load(path); err == nil {
				t.Fatalf("\t%s\tShould get an error.", failed)
			}
			t.Logf("\t%s\tShould get an error.", success)
		}
	}
}

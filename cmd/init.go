package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/bitcr/pocketd/repo"
)

// Init initializes a new pocketd repo at the provided path.
type Init struct {
	DataDir  string `short:"d" long:"datadir" description:"Directory to store data"`
	Mnemonic string `short:"m" long:"mnemonic" description:"A mnemonic seed to initialize the repo with"`
	Force    bool   `short:"f" long:"force" description:"Force overwrite existing repo (dangerous!)"`
}

// Execute initializes the pocketd repo.
func (x *Init) Execute(args []string) error {
	if x.DataDir == "" {
		x.DataDir = repo.DefaultHomeDir
	}

	if repo.IsInitialized(x.DataDir) && !x.Force {
		return errors.New("repo is already initialized")
	}

	os.RemoveAll(x.DataDir)

	var (
		r   *repo.Repo
		err error
	)
	if x.Mnemonic != "" {
		r, err = repo.NewRepoWithCustomMnemonicSeed(x.DataDir, x.Mnemonic)
	} else {
		r, err = repo.NewRepo(x.DataDir)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	mnemonic, err := r.Mnemonic()
	if err != nil {
		return err
	}

	fmt.Printf("pocketd repo initialized at %s\n", x.DataDir)
	fmt.Printf("Mnemonic seed (write this down): %s\n", mnemonic)
	return nil
}

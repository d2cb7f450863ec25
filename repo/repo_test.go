package repo

import (
	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/models"
	"io/ioutil"
	"os"
	"path"
	"testing"
)

func TestNewRepo(t *testing.T) {
	var dir = path.Join(os.TempDir(), "pocketd", "newRepoTest")
	r, err := NewRepo(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer r.DestroyRepo()

	if r.DB() == nil {
		t.Error("Failed to initialize the database")
	}

	version, err := ioutil.ReadFile(path.Join(dir, versionFileName))
	if err != nil {
		t.Fatal(err)
	}
	if string(version) != "0" {
		t.Errorf("Expected version 0, got %s", string(version))
	}

	mnemonic, err := r.Mnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if mnemonic == "" {
		t.Error("Failed to generate a mnemonic seed")
	}
}

func TestNewRepoWithCustomMnemonicSeed(t *testing.T) {
	var (
		dir      = path.Join(os.TempDir(), "pocketd", "newRepoSeedTest")
		mnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	)
	r, err := NewRepoWithCustomMnemonicSeed(dir, mnemonic)
	if err != nil {
		t.Fatal(err)
	}
	defer r.DestroyRepo()

	var dbSeed models.Key
	err = r.db.View(func(tx database.Tx) error {
		return tx.Read().Where("name = ?", "mnemonic").First(&dbSeed).Error
	})
	if err != nil {
		t.Fatal(err)
	}

	if string(dbSeed.Value) != mnemonic {
		t.Errorf("Failed to set correct mnemonic. Expected %s, got %s", mnemonic, string(dbSeed.Value))
	}
}

func TestNewRepoWithInvalidMnemonicSeed(t *testing.T) {
	var dir = path.Join(os.TempDir(), "pocketd", "newRepoBadSeedTest")
	defer os.RemoveAll(dir)

	if _, err := NewRepoWithCustomMnemonicSeed(dir, "not a valid seed"); err == nil {
		t.Error("Expected error initializing repo with an invalid mnemonic")
	}
}

func TestCleanAndExpandPath(t *testing.T) {
	os.Setenv("POCKETDTESTDIR", "testdir")
	cleaned := cleanAndExpandPath("/a/b/../$POCKETDTESTDIR")
	if cleaned != "/a/testdir" {
		t.Errorf("Expected /a/testdir, got %s", cleaned)
	}
}

package core

import (
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/repo"
)

// MockNode builds a node with an in-memory database and a mock mint
// connector. Every wallet on the node dials the same mock mint.
func MockNode() (*PocketNode, *mint.Mock, error) {
	db, err := repo.MockDB()
	if err != nil {
		return nil, nil, err
	}

	mock := mint.NewMock()
	node := NewNode(db, events.NewBus(), func(mintURL string) mint.Connector {
		return mock
	})
	return node, mock, nil
}

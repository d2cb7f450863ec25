package core

import (
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/bitcr/pocketd/database"
	"github.com/bitcr/pocketd/events"
	"github.com/bitcr/pocketd/ledger"
	"github.com/bitcr/pocketd/mint"
	"github.com/bitcr/pocketd/pocket"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("CORE")

const (
	// summaryTTL is how long a prepared payment or send summary stays
	// valid before Pay/Send rejects it as stale.
	summaryTTL = time.Minute * 2

	// reclaimAfter is how long a proof may sit reserved before
	// ReclaimFunds treats its operation as interrupted.
	reclaimAfter = time.Minute * 10

	// confirmationPolls bounds how many times CheckReceivedPayment asks
	// the mint before resolving to a pending result.
	confirmationPolls = 30
)

// Dialer returns a mint connector for the given mint URL.
type Dialer func(mintURL string) mint.Connector

// PocketNode is the wallet engine. It owns the proof store, the ledger
// and the per-wallet serialization that guarantees at most one in-flight
// operation per wallet.
type PocketNode struct {
	db       database.Database
	eventBus events.Bus
	store    *pocket.Store
	ledger   *ledger.Ledger
	dial     Dialer

	summaries *summaryCache

	mtx         sync.Mutex
	walletLocks map[string]*sync.Mutex

	// reclaimThreshold is overridable so tests can reclaim immediately.
	reclaimThreshold time.Duration

	shutdown chan struct{}
}

// NewNode builds a PocketNode on top of the given database. If dial is
// nil the default HTTP mint client is used.
func NewNode(db database.Database, bus events.Bus, dial Dialer) *PocketNode {
	if dial == nil {
		dial = func(mintURL string) mint.Connector {
			return mint.NewClient(mintURL)
		}
	}
	return &PocketNode{
		db:               db,
		eventBus:         bus,
		store:            pocket.NewStore(db),
		ledger:           ledger.NewLedger(db),
		dial:             dial,
		summaries:        newSummaryCache(summaryTTL),
		walletLocks:      make(map[string]*sync.Mutex),
		reclaimThreshold: reclaimAfter,
		shutdown:         make(chan struct{}),
	}
}

// Start gets the node up and running and listens for a signal interrupt.
func (n *PocketNode) Start() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	go func() {
		for range c {
			log.Info("pocketd shutting down...")
			n.Stop()
			os.Exit(1)
		}
	}()
}

// Stop cleanly shuts down the node and signals to any listening
// goroutines that it's time to stop.
func (n *PocketNode) Stop() {
	close(n.shutdown)
	n.db.Close()
}

// SubscribeEvent returns a subscription to the given event type(s).
func (n *PocketNode) SubscribeEvent(event interface{}) (events.Subscription, error) {
	return n.eventBus.Subscribe(event)
}

// Ledger returns the node's transaction ledger.
func (n *PocketNode) Ledger() *ledger.Ledger {
	return n.ledger
}

// lockWallet serializes operations on a single wallet. At most one
// state-mutating operation runs per wallet at a time; operations on
// distinct wallets proceed independently. The returned func releases the
// lock.
func (n *PocketNode) lockWallet(walletID string) func() {
	n.mtx.Lock()
	lock, ok := n.walletLocks[walletID]
	if !ok {
		lock = &sync.Mutex{}
		n.walletLocks[walletID] = lock
	}
	n.mtx.Unlock()

	lock.Lock()
	return lock.Unlock
}

func (n *PocketNode) notify(event interface{}) {
	if n.eventBus != nil {
		n.eventBus.Emit(event)
	}
}

// notifyOnCommit emits the event once the surrounding transaction has
// committed. A rolled back transaction emits nothing.
func (n *PocketNode) notifyOnCommit(tx database.Tx, event interface{}) {
	tx.RegisterCommitHook(func() {
		n.notify(event)
	})
}

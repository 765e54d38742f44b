package txfeed

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

// recordingObserver is a thread-safe Observer test double.
type recordingObserver struct {
	mu           sync.Mutex
	transactions []Transaction
	errs         []error
	completed    int
}

func (o *recordingObserver) OnNext(txs []Transaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transactions = append(o.transactions, txs...)
}

func (o *recordingObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *recordingObserver) OnCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *recordingObserver) snapshot() ([]Transaction, []error, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	txs := make([]Transaction, len(o.transactions))
	copy(txs, o.transactions)
	errs := make([]error, len(o.errs))
	copy(errs, o.errs)
	return txs, errs, o.completed
}

func TestSubscription_RemovedFromAdapterOnClose(t *testing.T) {
	store := &fakeStore{fn: func(cp Checkpoint, limit int) ([]Commit, error) {
		return nil, nil
	}}
	a := New(store, WithMaxPageSize(10), WithRegisterer(prometheus.NewRegistry()))
	t.Cleanup(func() { a.Dispose() })

	obs := &recordingObserver{}
	sub, err := a.Subscribe("", obs)
	require.NoError(t, err)

	a.subsMu.Lock()
	_, present := a.subs[sub]
	a.subsMu.Unlock()
	require.True(t, present)

	sub.Close()

	a.subsMu.Lock()
	_, present = a.subs[sub]
	a.subsMu.Unlock()
	require.False(t, present)
}

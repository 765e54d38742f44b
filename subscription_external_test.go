package txfeed_test

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/shogotsuneto/txfeed"
	"github.com/shogotsuneto/txfeed/memory"
)

// externalRecordingObserver is a thread-safe Observer test double for tests
// in the external txfeed_test package.
type externalRecordingObserver struct {
	mu           sync.Mutex
	transactions []txfeed.Transaction
	errs         []error
	completed    int
}

func (o *externalRecordingObserver) OnNext(txs []txfeed.Transaction) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transactions = append(o.transactions, txs...)
}

func (o *externalRecordingObserver) OnError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs = append(o.errs, err)
}

func (o *externalRecordingObserver) OnCompleted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.completed++
}

func (o *externalRecordingObserver) snapshot() ([]txfeed.Transaction, []error, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	txs := make([]txfeed.Transaction, len(o.transactions))
	copy(txs, o.transactions)
	errs := make([]error, len(o.errs))
	copy(errs, o.errs)
	return txs, errs, o.completed
}

func newTestAdapter(t *testing.T) (*txfeed.Adapter, *memory.Store) {
	t.Helper()
	store := memory.New()
	a := txfeed.New(store, txfeed.WithMaxPageSize(10), txfeed.WithPollInterval(20*time.Millisecond), txfeed.WithRegisterer(prometheus.NewRegistry()))
	t.Cleanup(func() { a.Dispose() })
	return a, store
}

func TestSubscription_DeliversInOrder(t *testing.T) {
	a, store := newTestAdapter(t)
	for i := 0; i < 5; i++ {
		_, err := store.Append("s", []txfeed.EventEnvelope{{Body: []byte("x")}})
		require.NoError(t, err)
	}

	obs := &externalRecordingObserver{}
	sub, err := a.Subscribe("", obs)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		txs, _, _ := obs.snapshot()
		return len(txs) == 5
	}, time.Second, 5*time.Millisecond)

	sub.Close()

	txs, _, completed := obs.snapshot()
	require.Equal(t, 1, completed)
	require.Len(t, txs, 5)
	for i := 1; i < len(txs); i++ {
		require.Less(t, string(txs[i-1].Checkpoint), string(txs[i].Checkpoint))
	}
}

func TestSubscription_CancelStopsDeliveryCleanly(t *testing.T) {
	a, store := newTestAdapter(t)
	_, err := store.Append("s", []txfeed.EventEnvelope{{Body: []byte("x")}})
	require.NoError(t, err)

	obs := &externalRecordingObserver{}
	sub, err := a.Subscribe("", obs)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		txs, _, _ := obs.snapshot()
		return len(txs) == 1
	}, time.Second, 5*time.Millisecond)

	sub.Close()
	sub.Close() // idempotent

	_, _, completed := obs.snapshot()
	require.Equal(t, 1, completed)
}

package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch := b.Subscribe(TopicCheckedTxs)

	b.Publish(TopicCheckedTxs, CheckedTxs{})

	select {
	case msg := <-ch:
		_, ok := msg.(CheckedTxs)
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestPublishFansOutToEverySubscriber(t *testing.T) {
	b := New()
	ch1 := b.Subscribe(TopicMinedTxs)
	ch2 := b.Subscribe(TopicMinedTxs)

	b.Publish(TopicMinedTxs, MinedTxs{TxIDs: nil})

	for _, ch := range []<-chan interface{}{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive fanned-out message")
		}
	}
}

func TestPublishIgnoresOtherTopics(t *testing.T) {
	b := New()
	ch := b.Subscribe(TopicCheckedTxs)

	b.Publish(TopicInvalidTxs, InvalidTxs{Reason: "bad parent"})

	select {
	case msg := <-ch:
		t.Fatalf("unexpected message on unrelated topic: %v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStopClosesSubscriberChannels(t *testing.T) {
	b := New()
	ch := b.Subscribe(TopicReorganization)

	b.Stop()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after Stop")
	}

	// Publish after Stop must not panic or block.
	b.Publish(TopicReorganization, Reorganization{})
}

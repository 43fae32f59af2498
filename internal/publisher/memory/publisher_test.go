package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type periodDone struct {
	Target string `json:"target"`
	Period string `json:"period"`
}

func TestPublishRecordsNotifications(t *testing.T) {
	t.Parallel()

	pub := New()
	assert.Empty(t, pub.Messages())

	id, err := pub.Publish(context.Background(), "journeys", periodDone{Target: "shop", Period: "2019"})
	require.NoError(t, err)
	assert.Equal(t, "memory-1", id)
	id, err = pub.Publish(context.Background(), "journeys", periodDone{Target: "shop", Period: "2020"})
	require.NoError(t, err)
	assert.Equal(t, "memory-2", id)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	var got periodDone
	require.NoError(t, msgs[1].Decode(&got))
	assert.Equal(t, periodDone{Target: "shop", Period: "2020"}, got)

	msgs[0].Topic = "mutated"
	assert.Equal(t, "journeys", pub.Messages()[0].Topic)
}

func TestPublishFailures(t *testing.T) {
	t.Parallel()

	pub := New()
	_, err := pub.Publish(context.Background(), "journeys", make(chan int))
	require.Error(t, err)

	outage := errors.New("broker down")
	pub.FailWith(outage)
	_, err = pub.Publish(context.Background(), "journeys", periodDone{})
	require.ErrorIs(t, err, outage)
	assert.Empty(t, pub.Messages())

	pub.FailWith(nil)
	_, err = pub.Publish(context.Background(), "journeys", periodDone{})
	require.NoError(t, err)
	assert.Len(t, pub.Messages(), 1)
}

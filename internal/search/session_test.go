package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/banshi/internal/models"
)

func TestSession_BeginCancelsPrevious(t *testing.T) {
	var s Session
	first := s.Begin(context.Background())
	assert.True(t, first.Current())

	second := s.Begin(context.Background())
	assert.False(t, first.Current())
	assert.True(t, second.Current())
	assert.Greater(t, second.ID, first.ID)

	select {
	case <-first.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("previous turn was not canceled")
	}
	assert.NoError(t, second.Context().Err())

	second.End()
	assert.Error(t, second.Context().Err())
	assert.Equal(t, uint64(2), s.Generation())
}

func TestSession_RunDiscardsStaleResult(t *testing.T) {
	var s Session
	firstStarted := make(chan struct{})

	var wg sync.WaitGroup
	var staleErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, staleErr = s.Run(context.Background(), func(ctx context.Context) (*models.SearchResponse, error) {
			close(firstStarted)
			<-ctx.Done()
			// A slow turn that still produces a result after being superseded.
			return &models.SearchResponse{Query: "stale"}, nil
		})
	}()

	<-firstStarted
	resp, err := s.Run(context.Background(), func(context.Context) (*models.SearchResponse, error) {
		return &models.SearchResponse{Query: "fresh"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", resp.Query)

	wg.Wait()
	assert.True(t, errors.Is(staleErr, ErrSuperseded))
}

func TestSession_RunPassesErrors(t *testing.T) {
	var s Session
	boom := errors.New("boom")
	_, err := s.Run(context.Background(), func(context.Context) (*models.SearchResponse, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSessions_LRU(t *testing.T) {
	c := NewSessions(2)
	a := c.Get("a")
	b := c.Get("b")
	assert.Same(t, a, c.Get("a"))

	c.Get("c") // evicts b, the least recently used
	assert.Equal(t, 2, c.Len())
	assert.Same(t, a, c.Get("a"))
	assert.NotSame(t, b, c.Get("b"))
}

func TestSessions_MinimumCapacity(t *testing.T) {
	c := NewSessions(0)
	c.Get("x")
	c.Get("y")
	assert.Equal(t, 1, c.Len())
}

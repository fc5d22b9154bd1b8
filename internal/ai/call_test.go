package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/embedlab/internal/pkg/errors"
)

func TestInvoke_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	res, err := invoke(context.Background(), CallPolicy{MaxAttempts: 3}, "test", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("503")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", res)
	require.Equal(t, 3, calls)
}

func TestInvoke_ExhaustedIsProviderError(t *testing.T) {
	calls := 0
	_, err := invoke(context.Background(), CallPolicy{MaxAttempts: 2}, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.New("boom")
	})
	require.ErrorIs(t, err, appErr.ErrProvider)
	require.Equal(t, 2, calls)
}

func TestInvoke_MissingCredentialsIsNotRetried(t *testing.T) {
	calls := 0
	_, err := invoke(context.Background(), CallPolicy{MaxAttempts: 5}, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, ErrUnavailable
	})
	require.ErrorIs(t, err, appErr.ErrMissingCredentials)
	require.NotErrorIs(t, err, appErr.ErrProvider)
	require.Equal(t, 1, calls)
}

func TestInvoke_TimeoutIsProviderError(t *testing.T) {
	_, err := invoke(context.Background(), CallPolicy{MaxAttempts: 1, Timeout: 10 * time.Millisecond}, "test", func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	require.ErrorIs(t, err, appErr.ErrProvider)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvoke_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := invoke(ctx, CallPolicy{MaxAttempts: 5, BaseDelay: time.Hour}, "test", func(ctx context.Context) (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})
	require.ErrorIs(t, err, appErr.ErrProvider)
	require.Equal(t, 1, calls)
}

type stubEmbedProvider struct {
	batches [][]string
	short   bool
}

func (p *stubEmbedProvider) Name() string { return "stub" }

func (p *stubEmbedProvider) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	p.batches = append(p.batches, texts)
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, []float32{float32(len(text))})
	}
	if p.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func TestEmbedder_BatchesKeepOrder(t *testing.T) {
	p := &stubEmbedProvider{}
	e := NewEmbedder(p, "m", 2, CallPolicy{MaxAttempts: 1})
	vectors, err := e.Embed(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)
	require.Equal(t, [][]float32{{1}, {2}, {3}, {4}, {5}}, vectors)
	require.Len(t, p.batches, 3)
	require.Equal(t, "m", e.ModelName())

	vectors, err = e.Embed(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, vectors)
}

func TestEmbedder_CountMismatch(t *testing.T) {
	e := NewEmbedder(&stubEmbedProvider{short: true}, "m", 0, CallPolicy{MaxAttempts: 1})
	_, err := e.Embed(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, appErr.ErrProvider)
}

func TestInvoke_UnsupportedModelIsTerminal(t *testing.T) {
	calls := 0
	_, err := invoke(context.Background(), CallPolicy{MaxAttempts: 3}, "test", func(ctx context.Context) (int, error) {
		calls++
		return 0, appErr.ErrUnsupportedModel
	})
	require.ErrorIs(t, err, appErr.ErrUnsupportedModel)
	require.False(t, appErr.IsRetryable(err))
	require.Equal(t, 1, calls)
}

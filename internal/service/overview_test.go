package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/target/media-console/internal/errors"
)

type publicAPIFunc func(ctx context.Context, name string) (json.RawMessage, error)

func (f publicAPIFunc) Public(ctx context.Context, name string) (json.RawMessage, error) {
	return f(ctx, name)
}

func TestOverviewService_FetchesAllSections(t *testing.T) {
	var calls atomic.Int32
	svc := NewOverviewService(OverviewServiceOptions{API: publicAPIFunc(func(_ context.Context, name string) (json.RawMessage, error) {
		calls.Add(1)
		return json.RawMessage(`{"section":"` + name + `"}`), nil
	})})

	out, err := svc.Overview(context.Background())
	require.NoError(t, err)
	require.Len(t, out, len(OverviewSections))
	for _, name := range OverviewSections {
		assert.JSONEq(t, `{"section":"`+name+`"}`, string(out[name]))
	}

	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(len(OverviewSections)), calls.Load(), "second call should be cached")
}

func TestOverviewService_SectionFailure(t *testing.T) {
	svc := NewOverviewService(OverviewServiceOptions{API: publicAPIFunc(func(_ context.Context, name string) (json.RawMessage, error) {
		if name == "trends" {
			return nil, errors.New("unavailable")
		}
		return json.RawMessage(`{}`), nil
	})})

	_, err := svc.Overview(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstream(err))
}

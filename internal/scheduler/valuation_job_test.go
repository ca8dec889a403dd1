package scheduler

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/aristath/coinwatch/internal/domain"
	"github.com/aristath/coinwatch/internal/modules/valuation"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) Run(ctx context.Context, mode valuation.Mode) (*valuation.Result, error) {
	args := m.Called(ctx, mode)
	res, _ := args.Get(0).(*valuation.Result)
	return res, args.Error(1)
}

func TestValuationJob_Name(t *testing.T) {
	job := NewValuationJob(nil)
	assert.Equal(t, "valuation", job.Name())
}

func TestValuationJob_RunsInBackgroundMode(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, valuation.ModeBackground).
		Return(&valuation.Result{RunID: "r1", Label: "profit", Notify: true}, nil).Once()

	job := NewValuationJob(runner)
	job.SetLogger(zerolog.Nop())

	require.NoError(t, job.Run())
	runner.AssertExpectations(t)
}

func TestValuationJob_RunHasDeadline(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		_, ok := ctx.Deadline()
		return ok
	}), valuation.ModeBackground).Return(&valuation.Result{}, nil).Once()

	job := NewValuationJob(runner)
	require.NoError(t, job.Run())
	runner.AssertExpectations(t)
}

func TestValuationJob_PropagatesFailure(t *testing.T) {
	runner := new(mockRunner)
	runner.On("Run", mock.Anything, valuation.ModeBackground).Return(nil, domain.ErrFetch).Once()

	job := NewValuationJob(runner)

	err := job.Run()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFetch)
}

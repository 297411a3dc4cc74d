package engine

import (
	"context"
	"testing"
	"time"

	"github.com/chunga-ict/pylo/kernel/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrchestrator(client DeviceClient, observer CommitObserver) *CommitOrchestrator {
	return NewCommitOrchestrator(client, CommitOptions{RoundDelay: time.Millisecond, Observer: observer})
}

func TestRunCommits_TwoDevicesDifferentRounds(t *testing.T) {
	client := newFakeClient()
	client.jobs["fwA"] = []jobStep{finished(model.JobResultOk)}
	client.jobs["fwB"] = []jobStep{running(40), finished(model.JobResultFailed)}

	result, err := newTestOrchestrator(client, nil).RunCommits(context.Background(), devices("fwA", "fwB"), time.Second)
	require.NoError(t, err)

	assert.Equal(t, map[string]model.CommitVerdict{
		"fwA": model.VerdictCommitted,
		"fwB": model.VerdictCommitFailed,
	}, result.Verdicts)
	assert.Equal(t, 2, result.Rounds)
	assert.Equal(t, 1, client.queries("fwA"), "a finished job is never polled again")
	assert.Equal(t, 2, client.queries("fwB"))
	assert.Equal(t, model.JobResultFailed, result.Jobs["fwB"].Result)
}

func TestRunCommits_StartFailureNeverRegistered(t *testing.T) {
	client := newFakeClient()
	client.startErr["fwA"] = model.NewCommunicationError("fwA", "commit", errors.New("no route to host"))
	client.jobs["fwB"] = []jobStep{finished(model.JobResultOk)}

	observer := newRecordingObserver()
	result, err := newTestOrchestrator(client, observer).RunCommits(context.Background(), devices("fwA", "fwB"), time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.VerdictCommunicationError, result.Verdict("fwA"))
	assert.Equal(t, model.VerdictCommitted, result.Verdict("fwB"))
	assert.Equal(t, 0, client.queries("fwA"))
	assert.NotContains(t, result.Jobs, "fwA")
	assert.Equal(t, []string{"fwB"}, observer.started)
}

func TestRunCommits_MissingJobId(t *testing.T) {
	client := newFakeClient()
	client.jobIds["fwA"] = ""

	result, err := newTestOrchestrator(client, nil).RunCommits(context.Background(), devices("fwA"), time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.VerdictCommunicationError, result.Verdict("fwA"))
	assert.Equal(t, 0, result.Rounds)
}

func TestRunCommits_TransientPollErrorsAreRetried(t *testing.T) {
	client := newFakeClient()
	client.jobs["fwA"] = []jobStep{transient("fwA"), transient("fwA"), running(80), finished(model.JobResultOk)}

	observer := newRecordingObserver()
	result, err := newTestOrchestrator(client, observer).RunCommits(context.Background(), devices("fwA"), time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.VerdictCommitted, result.Verdict("fwA"))
	assert.Equal(t, 4, result.Rounds)
	assert.Equal(t, []int{80}, observer.progress["fwA"])
	assert.Equal(t, model.VerdictCommitted, observer.finished["fwA"])
}

func TestRunCommits_BudgetExhausted(t *testing.T) {
	client := newFakeClient()
	client.jobs["fwA"] = []jobStep{running(10)}
	client.jobs["fwB"] = []jobStep{finished(model.JobResultOk)}

	orchestrator := NewCommitOrchestrator(client, CommitOptions{RoundDelay: 5 * time.Millisecond})
	start := time.Now()
	result, err := orchestrator.RunCommits(context.Background(), devices("fwA", "fwB"), 40*time.Millisecond)
	require.NoError(t, err)

	assert.Equal(t, model.VerdictCommunicationError, result.Verdict("fwA"))
	assert.Equal(t, model.VerdictCommitted, result.Verdict("fwB"))
	assert.Greater(t, result.Rounds, 1)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRunCommits_CallerDeadline(t *testing.T) {
	client := newFakeClient()
	client.jobs["fwA"] = []jobStep{running(10)}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	result, err := newTestOrchestrator(client, nil).RunCommits(ctx, devices("fwA"), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, model.VerdictCommunicationError, result.Verdict("fwA"))
}

func TestRunCommits_Totality(t *testing.T) {
	client := newFakeClient()
	client.startErr["fw3"] = model.NewMalformedResponseError("fw3", "commit", "missing <result>")
	client.jobs["fw1"] = []jobStep{finished(model.JobResultOk)}
	client.jobs["fw2"] = []jobStep{finished(model.JobResultFailed)}
	client.jobs["fw4"] = []jobStep{running(1)}

	set := devices("fw1", "fw2", "fw3", "fw4")
	result, err := NewCommitOrchestrator(client, CommitOptions{RoundDelay: time.Millisecond}).
		RunCommits(context.Background(), set, 20*time.Millisecond)
	require.NoError(t, err)

	require.Len(t, result.Verdicts, len(set))
	for _, dev := range set {
		assert.NotEmpty(t, result.Verdict(dev.Host), dev.Host)
	}
	assert.False(t, result.AllCommitted())
}

func TestRunCommits_InvalidInput(t *testing.T) {
	orchestrator := newTestOrchestrator(newFakeClient(), nil)

	_, err := orchestrator.RunCommits(context.Background(), devices("fwA"), 0)
	assert.Error(t, err)

	_, err = orchestrator.RunCommits(context.Background(), devices("fwA", "fwA"), time.Second)
	assert.Error(t, err)
}

func TestRunCommits_NoDevices(t *testing.T) {
	result, err := newTestOrchestrator(newFakeClient(), nil).RunCommits(context.Background(), nil, time.Second)
	require.NoError(t, err)
	assert.Empty(t, result.Verdicts)
	assert.Equal(t, 0, result.Rounds)
}

func TestRunCommits_NothingToCommit(t *testing.T) {
	client := newFakeClient()
	client.startErr["fwA"] = errors.Wrap(model.ErrNothingToCommit, "commit on [fwA]")
	client.jobs["fwB"] = []jobStep{finished(model.JobResultOk)}

	result, err := newTestOrchestrator(client, nil).RunCommits(context.Background(), devices("fwA", "fwB"), time.Second)
	require.NoError(t, err)

	assert.Equal(t, model.VerdictCommunicationError, result.Verdict("fwA"))
	assert.Equal(t, []string{"fwA"}, result.Unchanged)
	assert.NotContains(t, result.Jobs, "fwA")
	assert.False(t, result.AllCommitted())
	assert.True(t, result.Settled())
}

func TestRunCommits_CommunicationErrorNotSettled(t *testing.T) {
	client := newFakeClient()
	client.startErr["fwA"] = model.NewCommunicationError("fwA", "commit", errors.New("no route to host"))

	result, err := newTestOrchestrator(client, nil).RunCommits(context.Background(), devices("fwA"), time.Second)
	require.NoError(t, err)

	assert.Empty(t, result.Unchanged)
	assert.False(t, result.Settled())
}

func TestNewCommitOrchestrator_DefaultRoundDelay(t *testing.T) {
	o := NewCommitOrchestrator(newFakeClient(), CommitOptions{})
	assert.Equal(t, model.DefaultCommitRoundDelay, o.roundDelay)

	o = NewCommitOrchestrator(newFakeClient(), CommitOptions{RoundDelay: -time.Second})
	assert.Equal(t, model.DefaultCommitRoundDelay, o.roundDelay)
}

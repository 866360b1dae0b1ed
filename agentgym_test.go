package agentgym

import (
	"context"
	"testing"

	"github.com/hupe1980/agentgym/agent"
	"github.com/hupe1980/agentgym/core"
	"github.com/hupe1980/agentgym/environment"
	"github.com/hupe1980/agentgym/episode"
	"github.com/hupe1980/agentgym/executor"
	"github.com/hupe1980/agentgym/network"
	"github.com/hupe1980/agentgym/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresEnvironment(t *testing.T) {
	_, err := New()
	require.ErrorContains(t, err, "environment is required")
}

func TestNew_Defaults(t *testing.T) {
	gym, err := New(WithEnvironment(environment.NewTaskEnvironment()))
	require.NoError(t, err)

	assert.NotNil(t, gym.Network())
	assert.NotNil(t, gym.Registry())
	require.NotNil(t, gym.Executor())
	assert.Equal(t, executor.PolicySync, gym.Executor().Policy())
}

func TestAgentGym_RunEchoEpisode(t *testing.T) {
	ctx := context.Background()

	store := episode.NewInMemoryStore()
	gym, err := New(
		WithEnvironment(environment.NewTaskEnvironment()),
		WithStore(store),
		WithMode(network.ModeStreaming),
	)
	require.NoError(t, err)

	require.NoError(t, gym.RegisterTool(tool.NewEchoTool()))
	require.NoError(t, gym.RegisterAgent(agent.NewEchoAgent("echo-1")))

	records, err := gym.Run(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[2].Result.Done)

	ep := gym.Network().Episode()
	require.NotNil(t, ep)

	stored, err := store.Get(ctx, ep.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Len())
}

func TestAgentGym_RunStream(t *testing.T) {
	gym, err := New(WithEnvironment(environment.NewTaskEnvironment()))
	require.NoError(t, err)
	require.NoError(t, gym.RegisterAgent(agent.NewEchoAgent("echo-1")))

	records, errs := gym.RunStream(context.Background(), 10)

	var collected []core.StepRecord
	for rec := range records {
		collected = append(collected, rec)
	}
	require.NoError(t, <-errs)
	require.Len(t, collected, 3)
}

func TestAgentGym_DuplicateRegistrations(t *testing.T) {
	gym, err := New(WithEnvironment(environment.NewTaskEnvironment()))
	require.NoError(t, err)

	require.NoError(t, gym.RegisterAgent(agent.NewEchoAgent("echo-1")))
	var dupAgent *network.DuplicateAgentError
	require.ErrorAs(t, gym.RegisterAgent(agent.NewEchoAgent("echo-1")), &dupAgent)

	require.NoError(t, gym.RegisterTool(tool.NewEchoTool()))
	var dupTool *tool.DuplicateToolError
	require.ErrorAs(t, gym.RegisterTool(tool.NewEchoTool()), &dupTool)
}

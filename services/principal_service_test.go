package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

func TestAssignedAgentResolvesPairedAgent(t *testing.T) {
	repo := newFakePrincipalRepo()
	repo.addPrincipal("user-1", models.RoleUser)
	repo.addPrincipal("agent-1", models.RoleAgent)
	repo.pair("user-1", "agent-1")

	svc := NewPrincipalService(repo)

	agent, err := svc.AssignedAgent(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", agent.ID)
	assert.True(t, agent.IsAgent())
}

func TestAssignedAgentNotFoundWhenUnassigned(t *testing.T) {
	repo := newFakePrincipalRepo()
	repo.addPrincipal("user-1", models.RoleUser)

	svc := NewPrincipalService(repo)

	_, err := svc.AssignedAgent(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkg.ErrNotFound))
}

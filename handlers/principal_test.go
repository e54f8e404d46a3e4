package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
)

type fakePrincipalService struct {
	agentFn func(ctx context.Context, userID string) (*models.Principal, error)
}

func (f *fakePrincipalService) AssignedAgent(ctx context.Context, userID string) (*models.Principal, error) {
	return f.agentFn(ctx, userID)
}

func TestAssignedAgentReturnsPeer(t *testing.T) {
	svc := &fakePrincipalService{
		agentFn: func(_ context.Context, userID string) (*models.Principal, error) {
			assert.Equal(t, "user-1", userID)
			return &models.Principal{ID: "agent-1", Username: "agent-1", Role: models.RoleAgent}, nil
		},
	}
	h := NewPrincipalHandler(svc)

	rec := doRequest(h.AssignedAgent, http.MethodGet, "/api/me/agent", "",
		&models.Principal{ID: "user-1", Role: models.RoleUser}, nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp pkg.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
}

func TestAssignedAgentUnassignedMapsTo404(t *testing.T) {
	svc := &fakePrincipalService{
		agentFn: func(_ context.Context, _ string) (*models.Principal, error) {
			return nil, fmt.Errorf("%w: principal not found", pkg.ErrNotFound)
		},
	}
	h := NewPrincipalHandler(svc)

	rec := doRequest(h.AssignedAgent, http.MethodGet, "/api/me/agent", "",
		&models.Principal{ID: "user-1", Role: models.RoleUser}, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssignedAgentWithoutPrincipalIs401(t *testing.T) {
	h := NewPrincipalHandler(&fakePrincipalService{})

	rec := doRequest(h.AssignedAgent, http.MethodGet, "/api/me/agent", "", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

package handlers

import (
	"net/http"

	"github.com/akinalp/destek/models"
	"github.com/akinalp/destek/pkg"
	"github.com/akinalp/destek/services"
)

// PrincipalHandler, principal endpoint'lerini yöneten struct.
type PrincipalHandler struct {
	principalService services.PrincipalService
}

// NewPrincipalHandler, constructor.
func NewPrincipalHandler(principalService services.PrincipalService) *PrincipalHandler {
	return &PrincipalHandler{principalService: principalService}
}

// AssignedAgent godoc
// GET /api/me/agent
// Kullanıcının atanmış temsilcisini döner. Kullanıcı istemcisi açılışta
// konuşma peer'ını buradan çözer — sonrasında history, send ve presence
// watch hep bu ID ile yapılır. Atama yoksa 404.
func (h *PrincipalHandler) AssignedAgent(w http.ResponseWriter, r *http.Request) {
	user, ok := r.Context().Value(UserContextKey).(*models.Principal)
	if !ok {
		pkg.ErrorWithMessage(w, http.StatusUnauthorized, "user not found in context")
		return
	}

	agent, err := h.principalService.AssignedAgent(r.Context(), user.ID)
	if err != nil {
		pkg.Error(w, err)
		return
	}

	pkg.JSON(w, http.StatusOK, agent)
}

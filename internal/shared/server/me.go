package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docanalyzer/internal/shared/server/middleware"
	"docanalyzer/internal/shared/server/respond"
)

// meResponse describes the caller identity documents are owned by.
type meResponse struct {
	UserID  string `json:"userId"`
	Kind    string `json:"kind"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	id := middleware.IdentityFromContext(c)
	if id.Kind == middleware.KindAnonymous {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "no identity: send a bearer token or X-Guest-Id", nil)
		return
	}
	respond.OK(c, meResponse{
		UserID:  id.UserID,
		Kind:    id.Kind,
		Email:   id.Email,
		Name:    id.Name,
		Picture: id.Picture,
	})
}

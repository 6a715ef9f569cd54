package controllers

import (
	"errors"
	"net/http"

	"github.com/faeln1/second-brain/internal/app/services"
)

type GroupController struct {
	service services.GroupService
}

func NewGroupController(s services.GroupService) *GroupController {
	return &GroupController{service: s}
}

// List handles GET /groups.
func (c *GroupController) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
		return
	}
	groups, err := c.service.ListGroups(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeData(w, http.StatusOK, groups)
}

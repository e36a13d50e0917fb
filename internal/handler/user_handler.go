package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketplace-backend/internal/directory"
)

type UserHandler struct {
	dir directory.Directory
}

func NewUserHandler(dir directory.Directory) *UserHandler {
	return &UserHandler{dir: dir}
}

func (h *UserHandler) GetPublic(c echo.Context) error {
	uid := c.Param("uid")
	if uid == "" {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid uid"))
	}
	profiles, err := h.dir.Profiles(c.Request().Context(), []string{uid})
	if err != nil {
		return writeServiceError(c, err, "failed to fetch user")
	}
	p, ok := profiles[uid]
	if !ok {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "user not found"))
	}
	return c.JSON(http.StatusOK, p)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/ordering/framework/adapters/transport"
	"github.com/akriventsev/ordering/framework/cqrs"
	"github.com/akriventsev/ordering/internal/application"
	"github.com/akriventsev/ordering/internal/domain"
)

func (h *Handler) listUsers(c *gin.Context) {
	users, err := cqrs.Ask[[]*domain.User](c.Request.Context(), h.queries, application.ListUsersQuery{})
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (h *Handler) getUser(c *gin.Context) {
	h.respondUser(c, http.StatusOK, c.Param("id"))
}

func (h *Handler) createUser(c *gin.Context) {
	var req application.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := application.CreateUserCommand{UserID: h.newID(), Request: req}
	if err := h.commands.Send(c.Request.Context(), cmd); err != nil {
		transport.WriteError(c, err)
		return
	}
	h.respondUser(c, http.StatusCreated, cmd.UserID)
}

func (h *Handler) updateUser(c *gin.Context) {
	var req application.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	if err := h.commands.Send(c.Request.Context(), application.UpdateUserCommand{UserID: id, Request: req}); err != nil {
		transport.WriteError(c, err)
		return
	}
	h.respondUser(c, http.StatusOK, id)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.commands.Send(c.Request.Context(), application.DeleteUserCommand{UserID: c.Param("id")}); err != nil {
		transport.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondUser(c *gin.Context, status int, id string) {
	user, err := cqrs.Ask[*domain.User](c.Request.Context(), h.queries, application.GetUserQuery{UserID: id})
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(status, user)
}

func (h *Handler) listSavedProducts(c *gin.Context) {
	saved, err := h.savedProducts(c, c.Param("id"))
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

func (h *Handler) saveProduct(c *gin.Context) {
	var req application.SaveProductRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := c.Param("id")
	if err := h.commands.Send(c.Request.Context(), application.SaveProductCommand{UserID: userID, Request: req}); err != nil {
		transport.WriteError(c, err)
		return
	}

	saved, err := h.savedProducts(c, userID)
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	for _, s := range saved {
		if s.ProductID == req.ProductID {
			c.JSON(http.StatusCreated, s)
			return
		}
	}
	transport.WriteError(c, domain.NewNotFound("saved product", req.ProductID))
}

func (h *Handler) removeSavedProduct(c *gin.Context) {
	cmd := application.RemoveSavedProductCommand{UserID: c.Param("id"), ProductID: c.Param("productId")}
	if err := h.commands.Send(c.Request.Context(), cmd); err != nil {
		transport.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) savedProducts(c *gin.Context, userID string) ([]domain.SavedProduct, error) {
	return cqrs.Ask[[]domain.SavedProduct](c.Request.Context(), h.queries, application.ListSavedProductsQuery{UserID: userID})
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/ordering/framework/adapters/transport"
	"github.com/akriventsev/ordering/framework/cqrs"
	"github.com/akriventsev/ordering/internal/application"
	"github.com/akriventsev/ordering/internal/domain"
)

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := cqrs.Ask[[]*domain.Order](c.Request.Context(), h.queries, application.ListOrdersQuery{})
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *Handler) getOrder(c *gin.Context) {
	h.respondOrder(c, http.StatusOK, c.Param("id"), false)
}

func (h *Handler) createOrder(c *gin.Context) {
	var req application.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := application.CreateOrderCommand{OrderID: h.newID(), Request: req}
	if err := h.commands.Send(c.Request.Context(), cmd); err != nil {
		transport.WriteError(c, err)
		return
	}
	h.respondOrder(c, http.StatusCreated, cmd.OrderID, true)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req application.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	if err := h.commands.Send(c.Request.Context(), application.UpdateOrderStatusCommand{OrderID: id, Request: req}); err != nil {
		transport.WriteError(c, err)
		return
	}
	h.respondOrder(c, http.StatusOK, id, true)
}

func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.commands.Send(c.Request.Context(), application.DeleteOrderCommand{OrderID: c.Param("id")}); err != nil {
		transport.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondOrder после записи читает заказ мимо кэша, чтобы ответ не зависел от инвалидации
func (h *Handler) respondOrder(c *gin.Context, status int, id string, refresh bool) {
	view, err := cqrs.Ask[*application.OrderView](c.Request.Context(), h.queries, application.GetOrderQuery{OrderID: id, Refresh: refresh})
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(status, view)
}

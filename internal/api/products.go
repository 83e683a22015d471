package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akriventsev/ordering/framework/adapters/transport"
	"github.com/akriventsev/ordering/framework/cqrs"
	"github.com/akriventsev/ordering/internal/application"
	"github.com/akriventsev/ordering/internal/domain"
)

func (h *Handler) listProducts(c *gin.Context) {
	q := application.ListProductsQuery{Category: c.Query("category")}
	products, err := cqrs.Ask[[]*domain.Product](c.Request.Context(), h.queries, q)
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *Handler) getProduct(c *gin.Context) {
	h.respondProduct(c, http.StatusOK, c.Param("id"))
}

func (h *Handler) createProduct(c *gin.Context) {
	var req application.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := application.CreateProductCommand{ProductID: h.newID(), Request: req}
	if err := h.commands.Send(c.Request.Context(), cmd); err != nil {
		transport.WriteError(c, err)
		return
	}
	h.respondProduct(c, http.StatusCreated, cmd.ProductID)
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req application.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}

	id := c.Param("id")
	if err := h.commands.Send(c.Request.Context(), application.UpdateProductCommand{ProductID: id, Request: req}); err != nil {
		transport.WriteError(c, err)
		return
	}
	h.respondProduct(c, http.StatusOK, id)
}

func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.commands.Send(c.Request.Context(), application.DeleteProductCommand{ProductID: c.Param("id")}); err != nil {
		transport.WriteError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondProduct(c *gin.Context, status int, id string) {
	product, err := cqrs.Ask[*domain.Product](c.Request.Context(), h.queries, application.GetProductQuery{ProductID: id})
	if err != nil {
		transport.WriteError(c, err)
		return
	}
	c.JSON(status, product)
}

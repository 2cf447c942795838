package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	cartsvc "variantcart/internal/service/cart"
	"variantcart/internal/service/checkout"
)

func (a *api) createCart(c *gin.Context) {
	currency, err := a.currency(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	view, err := a.deps.CartSvc.Create(c.Request.Context(), currency)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, view)
}

func (a *api) getCart(c *gin.Context) {
	currency, err := a.currency(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	view, err := a.deps.CartSvc.Get(c.Request.Context(), c.Param("id"), currency)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *api) updateCart(c *gin.Context) {
	currency, err := a.currency(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	var in cartsvc.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, newError(http.StatusBadRequest, "InvalidJsonInput", "invalid request body"))
		return
	}
	view, err := a.deps.CartSvc.Update(c.Request.Context(), c.Param("id"), currency, in)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (a *api) clearCart(c *gin.Context) {
	if err := a.deps.CartSvc.Clear(c.Request.Context(), c.Param("id")); err != nil {
		a.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *api) checkout(c *gin.Context) {
	currency, err := a.currency(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	out, err := a.deps.CheckoutSvc.Attempt(c.Request.Context(), c.Param("id"), checkout.Request{Currency: currency})
	switch {
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		c.JSON(http.StatusConflict, newError(http.StatusConflict, "ConcurrentModification", err.Error()))
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, newError(http.StatusBadRequest, "InvalidOperation", err.Error()))
	case errors.Is(err, checkout.ErrSessionFailed):
		a.logger.WithError(err).WithField("cart_id", c.Param("id")).Warn("http: checkout session failed")
		c.JSON(http.StatusBadGateway, gin.H{
			"statusCode": http.StatusBadGateway,
			"message":    "payment session could not be created, please retry",
			"outcome":    out,
		})
	case err != nil:
		a.writeError(c, err)
	case !out.OK:
		c.JSON(http.StatusConflict, out)
	default:
		c.JSON(http.StatusOK, out)
	}
}

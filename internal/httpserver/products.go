package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"variantcart/internal/domain"
)

func (a *api) getProduct(c *gin.Context) {
	currency, err := a.currency(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	p, err := a.deps.Products.GetByID(c.Request.Context(), c.Param("id"))
	if err == nil && p == nil {
		err = domain.ErrNotFound
	}
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toProductResponse(*p, a.deps.Prices, currency))
}

func (a *api) productOptions(c *gin.Context) {
	currency, err := a.currency(c)
	if err != nil {
		a.writeError(c, err)
		return
	}
	sel := domain.Selection{
		Color:     strings.TrimSpace(c.Query("color")),
		Storage:   strings.TrimSpace(c.Query("storage")),
		Condition: domain.Condition(strings.ToLower(strings.TrimSpace(c.Query("condition")))),
	}
	if sel.Condition != "" && !sel.Condition.Valid() {
		c.JSON(http.StatusBadRequest, newError(http.StatusBadRequest, "InvalidInput", "unknown condition"))
		return
	}
	out, err := a.deps.CartSvc.Options(c.Request.Context(), c.Param("id"), sel, currency)
	if err != nil {
		a.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

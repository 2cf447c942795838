package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"variantcart/internal/domain"
	cartsvc "variantcart/internal/service/cart"
)

// writeError maps service errors onto the error envelope.
func (a *api) writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "General"
	switch {
	case errors.Is(err, cartsvc.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrUnsupportedCurrency):
		status, code = http.StatusBadRequest, "InvalidInput"
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrItemNotFound):
		status, code = http.StatusNotFound, "ResourceNotFound"
	case errors.Is(err, domain.ErrOutOfStock):
		status, code = http.StatusConflict, "OutOfStock"
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		a.logger.WithError(err).WithField("path", c.FullPath()).Error("http: request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, newError(status, code, msg))
}

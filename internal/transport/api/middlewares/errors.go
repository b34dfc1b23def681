package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/gin-gonic/gin"
)

func statusErrorText(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusPaymentRequired:
		return "not enough balance"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not found"
	case http.StatusUnprocessableEntity:
		return "unprocessable entity"
	case http.StatusConflict:
		return "conflict"
	case http.StatusServiceUnavailable:
		return "service temporarily unavailable, retry later"
	default:
		return "internal server error"
	}
}

// errorStatuses сопоставление ошибок сервисного слоя http статусам. Порядок важен: проверяется первое совпадение.
var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrRecordNotFound, http.StatusNotFound},
	{domain.ErrDuplicateKey, http.StatusConflict},
	{domain.ErrNotEnoughBalance, http.StatusPaymentRequired},
	{domain.ErrOutOfStock, http.StatusUnprocessableEntity},
	{domain.ErrTooManyItems, http.StatusUnprocessableEntity},
	{domain.ErrEmptyCart, http.StatusUnprocessableEntity},
	{domain.ErrInvalidRating, http.StatusUnprocessableEntity},
	{domain.ErrInvalidQuantity, http.StatusUnprocessableEntity},
	{domain.ErrInvalidAmount, http.StatusUnprocessableEntity},
	{domain.ErrMovieUnavailable, http.StatusUnprocessableEntity},
	{domain.ErrEmptyUpdate, http.StatusUnprocessableEntity},
	{domain.ErrInvalidFilter, http.StatusUnprocessableEntity},
	{domain.ErrInvalidMovie, http.StatusUnprocessableEntity},
	{domain.ErrAdminRequired, http.StatusForbidden},
	{domain.ErrUserInactive, http.StatusForbidden},
	{domain.ErrPasswordMissMatch, http.StatusUnauthorized},
	{domain.ErrDeadlock, http.StatusServiceUnavailable},
	{domain.ErrSerialization, http.StatusServiceUnavailable},
}

// StatusFromError http статус и публичное сообщение для ошибки сервисного слоя. Неизвестные ошибки - 500
// без подробностей.
func StatusFromError(err error) (int, string) {
	var dupOrder *domain.DuplicateOrderError
	if errors.As(err, &dupOrder) {
		return http.StatusConflict, dupOrder.Error()
	}
	var outOfStock *domain.OutOfStockError
	if errors.As(err, &outOfStock) {
		return http.StatusUnprocessableEntity, "out of stock: " + outOfStock.Error()
	}

	for _, es := range errorStatuses {
		if errors.Is(err, es.err) {
			switch es.status {
			case http.StatusNotFound, http.StatusServiceUnavailable, http.StatusPaymentRequired:
				return es.status, statusErrorText(es.status)
			default:
				return es.status, es.err.Error()
			}
		}
	}
	return http.StatusInternalServerError, statusErrorText(http.StatusInternalServerError)
}

func Errors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// тело ответа уже записано обработчиком.
		if len(c.Errors) == 0 || c.Writer.Size() > 0 {
			return
		}

		// обрабатываем только первую ошибку
		firstErr := c.Errors[0]
		var msg string
		if firstErr.IsType(gin.ErrorTypePublic) {
			msg = firstErr.Error()
		} else {
			msg = statusErrorText(c.Writer.Status())
		}

		accept := c.GetHeader("Accept")
		contentType := c.GetHeader("Content-Type")
		switch {
		case strings.Contains(accept, "text/plain"):
			c.String(c.Writer.Status(), msg)
		case strings.Contains(accept, "application/json"),
			strings.Contains(contentType, "application/json"):
			c.JSON(c.Writer.Status(), gin.H{"error": msg})
		default:
			c.JSON(c.Writer.Status(), gin.H{"error": msg})
		}
		c.Abort()
	}
}

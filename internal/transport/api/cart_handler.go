package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/moviestore/internal/service"
)

type CartHandler struct {
	cartSvs  CartServicer
	orderSvs OrderServicer
}

func NewCartHandler(cartSvs CartServicer, orderSvs OrderServicer) *CartHandler {
	return &CartHandler{
		cartSvs:  cartSvs,
		orderSvs: orderSvs,
	}
}

type CartLineResponse struct {
	MovieID   int64           `json:"movie_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type CartResponse struct {
	ID     int64              `json:"id"`
	UserID uuid.UUID          `json:"user_id"`
	Total  decimal.Decimal    `json:"total"`
	Lines  []CartLineResponse `json:"lines"`
}

func newCartResponse(view *service.CartView) CartResponse {
	lines := make([]CartLineResponse, len(view.Lines))
	for i, l := range view.Lines {
		lines[i] = CartLineResponse{
			MovieID:   l.MovieID,
			Title:     l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
			LineTotal: l.LineTotal(),
		}
	}
	return CartResponse{
		ID:     view.Cart.ID,
		UserID: view.Cart.UserID,
		Total:  view.Cart.Total,
		Lines:  lines,
	}
}

type QuantityParams struct {
	Quantity int32 `binding:"omitempty,min=1,max=1000" form:"quantity" json:"quantity"`
}

func (p QuantityParams) orDefault() int32 {
	if p.Quantity == 0 {
		return 1
	}
	return p.Quantity
}

type SetQuantityParams struct {
	Quantity *int32 `binding:"required,min=0,max=1000" json:"quantity"`
}

// Show GET RouteGroup + CartRoute. Активная корзина текущего юзера.
func (h *CartHandler) Show(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	view, err := h.cartSvs.Get(ctx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(view))
}

// Add PUT RouteGroup + CartItemRoute. Добавляет quantity (по умолчанию 1) экземпляров фильма в корзину.
func (h *CartHandler) Add(c *gin.Context) {
	movieID, ok := paramID(c, "movieID")
	if !ok {
		return
	}
	var params QuantityParams
	if c.Request.ContentLength > 0 {
		if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
			abortWithBindError(c, bindErr)
			return
		}
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	view, err := h.cartSvs.AddItem(ctx, getUserIDFromContext(c), movieID, params.orDefault())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(view))
}

// Update PATCH RouteGroup + CartItemRoute. Устанавливает количество позиции, 0 удаляет позицию.
func (h *CartHandler) Update(c *gin.Context) {
	movieID, ok := paramID(c, "movieID")
	if !ok {
		return
	}
	var params SetQuantityParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	view, err := h.cartSvs.SetQuantity(ctx, getUserIDFromContext(c), movieID, *params.Quantity)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(view))
}

// Remove DELETE RouteGroup + CartItemRoute?quantity=N. Убирает N (по умолчанию 1) экземпляров фильма.
func (h *CartHandler) Remove(c *gin.Context) {
	movieID, ok := paramID(c, "movieID")
	if !ok {
		return
	}
	var params QuantityParams
	if bindErr := c.ShouldBindQuery(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	view, err := h.cartSvs.RemoveItem(ctx, getUserIDFromContext(c), movieID, params.orDefault())
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(view))
}

// Clear DELETE RouteGroup + CartRoute.
func (h *CartHandler) Clear(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	view, err := h.cartSvs.Clear(ctx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCartResponse(view))
}

// Checkout POST RouteGroup + CheckoutRoute. Оформление и оплата корзины одним запросом.
func (h *CartHandler) Checkout(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	settlement, err := h.orderSvs.Checkout(ctx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSettlementResponse(settlement))
}

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/service"
)

type OrdersHandler struct {
	orderSvs OrderServicer
}

func NewOrdersHandler(orderSvs OrderServicer) *OrdersHandler {
	return &OrdersHandler{
		orderSvs: orderSvs,
	}
}

type OrderItemResponse struct {
	MovieID  int64 `json:"movie_id"`
	Quantity int32 `json:"quantity"`
}

type OrderResponse struct {
	ID        int64               `json:"id"`
	Total     decimal.Decimal     `json:"total"`
	CreatedAt time.Time           `json:"created_at"`
	Paid      bool                `json:"paid"`
	Items     []OrderItemResponse `json:"items,omitempty"`
}

func newOrderResponse(o *domain.Order, items []domain.OrderItem) OrderResponse {
	res := OrderResponse{
		ID:        o.ID,
		Total:     o.Total,
		CreatedAt: o.Date,
		Paid:      o.Paid,
	}
	for _, it := range items {
		res.Items = append(res.Items, OrderItemResponse{MovieID: it.MovieID, Quantity: it.Quantity})
	}
	return res
}

type SettlementResponse struct {
	Order     OrderResponse   `json:"order"`
	Settled   bool            `json:"settled"`
	Balance   decimal.Decimal `json:"balance"`
	NewCartID int64           `json:"new_cart_id,omitempty"`
}

func newSettlementResponse(s *service.Settlement) SettlementResponse {
	res := SettlementResponse{
		Order:   newOrderResponse(&s.Order, nil),
		Settled: s.Settled,
		Balance: s.Balance,
	}
	if s.NewCart != nil {
		res.NewCartID = s.NewCart.ID
	}
	return res
}

// Create POST RouteGroup + OrdersRoute. Оформляет текущую корзину в неоплаченный заказ.
func (o *OrdersHandler) Create(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	order, err := o.orderSvs.PlaceOrder(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newOrderResponse(order, nil))
}

// Index GET RouteGroup + OrdersRoute.
func (o *OrdersHandler) Index(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	orders, err := o.orderSvs.GetByUserID(reqCtx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	if len(orders) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	var response = make([]OrderResponse, len(orders))
	for i := range orders {
		response[i] = newOrderResponse(&orders[i], nil)
	}

	c.JSON(http.StatusOK, response)
}

// Show GET RouteGroup + OrderRoute. Чужой заказ неотличим от несуществующего.
func (o *OrdersHandler) Show(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	view, err := o.orderSvs.Get(reqCtx, getUserIDFromContext(c), orderID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newOrderResponse(&view.Order, view.Items))
}

// Pay POST RouteGroup + OrderPayRoute. Повторная оплата уже оплаченного заказа отвечает 200 с settled=false.
func (o *OrdersHandler) Pay(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	settlement, err := o.orderSvs.Pay(reqCtx, getUserIDFromContext(c), orderID)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, newSettlementResponse(settlement))
}

type SaleResponse struct {
	OrderID   int64           `json:"order_id"`
	CreatedAt time.Time       `json:"created_at"`
	Total     decimal.Decimal `json:"total"`
	Paid      bool            `json:"paid"`
	User      string          `json:"user"`
}

// Sales GET RouteGroup + SalesRoute. Заказы года покупателей одной национальности. Только для администраторов.
func (o *OrdersHandler) Sales(c *gin.Context) {
	year, err := strconv.ParseInt(c.Param("year"), 10, 32)
	if err != nil {
		_ = c.AbortWithError(http.StatusBadRequest, errors.New("invalid year")).SetType(gin.ErrorTypePublic)
		return
	}

	reqCtx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	sales, err := o.orderSvs.Sales(reqCtx, int32(year), c.Param("country"))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}

	if len(sales) == 0 {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}

	response := make([]SaleResponse, len(sales))
	for i, sale := range sales {
		response[i] = SaleResponse{
			OrderID:   sale.OrderID,
			CreatedAt: sale.Date,
			Total:     sale.Total,
			Paid:      sale.Paid,
			User:      sale.UserName,
		}
	}
	c.JSON(http.StatusOK, response)
}

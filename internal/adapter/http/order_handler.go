package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Lost-tail/MetalProductsBackend/internal/logging"

	domain "github.com/Lost-tail/MetalProductsBackend/internal/entity"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	create *usecase.CreateOrder
	orders *usecase.Orders
	audit  usecase.AuditNotifier
}

func NewOrderHandler(create *usecase.CreateOrder, orders *usecase.Orders, audit usecase.AuditNotifier) *OrderHandler {
	return &OrderHandler{create: create, orders: orders, audit: audit}
}

type detailPayload struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	FirstName string `json:"first_name"`
	Address   string `json:"address"`
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
	Comment   string `json:"comment"`
}

type linkPayload struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type createOrderReq struct {
	ProductLinks []linkPayload `json:"product_links" binding:"required"`
	Detail       detailPayload `json:"detail" binding:"required"`
}

func (r createOrderReq) toInput() usecase.CreateOrderInput {
	in := usecase.CreateOrderInput{
		Detail: usecase.DetailInput{
			Email:     r.Detail.Email,
			Phone:     r.Detail.Phone,
			FirstName: r.Detail.FirstName,
			Address:   r.Detail.Address,
			Latitude:  r.Detail.Latitude,
			Longitude: r.Detail.Longitude,
			Comment:   r.Detail.Comment,
		},
	}
	for _, l := range r.ProductLinks {
		in.Links = append(in.Links, usecase.LinkInput{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return in
}

type detailResp struct {
	ID            string `json:"id"`
	OrderID       string `json:"order_id"`
	Email         string `json:"email,omitempty"`
	Phone         string `json:"phone,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	Address       string `json:"address,omitempty"`
	Latitude      string `json:"latitude,omitempty"`
	Longitude     string `json:"longitude,omitempty"`
	DeliveryPrice string `json:"delivery_price"`
	Comment       string `json:"comment,omitempty"`
}

type linkResp struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type orderResp struct {
	ID           string          `json:"id"`
	Status       string          `json:"status"`
	Amount       string          `json:"amount"`
	AmountPaid   *string         `json:"amount_paid,omitempty"`
	ExternalID   string          `json:"external_id,omitempty"`
	PaymentData  json.RawMessage `json:"payment_data,omitempty"`
	Detail       *detailResp     `json:"detail"`
	ProductLinks []linkResp      `json:"product_links"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toOrderResp(o *domain.Order) orderResp {
	resp := orderResp{
		ID:          o.ID,
		Status:      string(o.Status),
		Amount:      o.Amount.StringFixed(2),
		ExternalID:  o.ExternalID,
		PaymentData: o.PaymentData,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.AmountPaid.Valid {
		paid := o.AmountPaid.Decimal.StringFixed(2)
		resp.AmountPaid = &paid
	}
	if o.Detail != nil {
		resp.Detail = &detailResp{
			ID:            o.Detail.ID,
			OrderID:       o.Detail.OrderID,
			Email:         o.Detail.Email,
			Phone:         o.Detail.Phone,
			FirstName:     o.Detail.FirstName,
			Address:       o.Detail.Address,
			Latitude:      o.Detail.Latitude,
			Longitude:     o.Detail.Longitude,
			DeliveryPrice: o.Detail.DeliveryPrice.StringFixed(2),
			Comment:       o.Detail.Comment,
		}
	}
	resp.ProductLinks = make([]linkResp, 0, len(o.Links))
	for _, l := range o.Links {
		resp.ProductLinks = append(resp.ProductLinks, linkResp{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return resp
}

func writeErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, usecase.ErrTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logging.From(c).Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}

func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	order, err := h.create.Execute(c.Request.Context(), req.toInput())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, toOrderResp(order))
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResp(order))
}

// ListOrders translates the flat query-parameter set into the filter. Unset
// parameters restrict nothing.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	f, p, err := parseListQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orders, err := h.orders.List(c.Request.Context(), f, p)
	if err != nil {
		writeErr(c, err)
		return
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	c.JSON(http.StatusOK, out)
}

func parseListQuery(c *gin.Context) (usecase.OrderFilter, usecase.Page, error) {
	var f usecase.OrderFilter

	if s := c.Query("status"); s != "" {
		st, err := domain.ParseStatus(s)
		if err != nil {
			return f, usecase.Page{}, err
		}
		f.Status = &st
	}
	if s := c.Query("status__in"); s != "" {
		for _, part := range strings.Split(s, ",") {
			st, err := domain.ParseStatus(strings.TrimSpace(part))
			if err != nil {
				return f, usecase.Page{}, err
			}
			f.StatusIn = append(f.StatusIn, st)
		}
	}
	if s := c.Query("created_at__gte"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, usecase.Page{}, errors.New("created_at__gte must be RFC3339")
		}
		f.CreatedFrom = &t
	}
	if s := c.Query("created_at__lte"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return f, usecase.Page{}, errors.New("created_at__lte must be RFC3339")
		}
		f.CreatedTo = &t
	}
	if s := c.Query("product_id"); s != "" {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.ProductIDs = append(f.ProductIDs, part)
			}
		}
	}
	f.Search = c.Query("search")

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	p := usecase.Page{
		Offset: offset,
		Limit:  limit,
		SortBy: usecase.SortField(c.DefaultQuery("sort_by", "id")),
		Dir:    usecase.SortDir(c.DefaultQuery("order", "desc")),
	}
	return f, p, nil
}

type updateOrderReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	var req updateOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		writeErr(c, err)
		return
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, toOrderResp(order))
}

func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *OrderHandler) EstimateDelivery(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	price, err := h.create.EstimateDelivery(c.Request.Context(), req.toInput())
	if err != nil {
		writeErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"delivery_price": price.StringFixed(2)})
}

type requestCallReq struct {
	Phone   string `json:"phone" binding:"required"`
	FIO     string `json:"fio" binding:"required"`
	Comment string `json:"comment"`
}

// RequestCall publishes a call-back request to the notification channel.
func (h *OrderHandler) RequestCall(c *gin.Context) {
	var req requestCallReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	text := "Call-back request from " + req.FIO + "\nPhone: `" + req.Phone + "`"
	if req.Comment != "" {
		text += "\nComment: " + req.Comment
	}
	if err := h.audit.Notify(c.Request.Context(), usecase.AuditEvent{
		Kind:    usecase.AuditRequestCall,
		Success: true,
		Text:    text,
		At:      time.Now(),
	}); err != nil {
		logging.From(c).Warn("request call notification failed", "error", err)
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Request for call submitted successfully"})
}

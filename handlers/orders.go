package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"

	"shop-backend/internal/orders"
	"shop-backend/pkg/ctxmanage"
	"shop-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/checkout/session"
)

const defaultPaymentMethod = "card"

func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	list, err := h.o.ListOrders(c.Request.Context(), claims.Subject)
	if err != nil {
		slog.Error("error fetching orders", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

// Checkout snapshots the caller's cart into a pending order plus a pending
// payment, decrementing stock and clearing the cart in the same transaction.
// When Stripe is configured it also opens a checkout session.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := claimsFromRequest(c)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var request struct {
		Method string `json:"method"`
	}
	if err := c.ShouldBindJSON(&request); err != nil && !errors.Is(err, io.EOF) {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if request.Method == "" {
		request.Method = defaultPaymentMethod
	}

	orderId := uuid.NewString()
	order, err := h.o.CreateOrderFromCart(c.Request.Context(), orderId, claims.Subject)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrEmptyCart):
			slog.Error("checkout with empty cart", slog.String(logkey.TraceID, traceId), slog.String("UserID", claims.Subject))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		case errors.Is(err, orders.ErrInsufficientStock):
			slog.Error("insufficient stock", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Insufficient stock available"})
		default:
			slog.Error("error creating order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		}
		return
	}

	payment, err := h.pay.InsertPayment(c.Request.Context(), order.ID, order.TotalPrice, request.Method)
	if err != nil {
		slog.Error("error creating payment", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment"})
		return
	}

	response := gin.H{
		"order":   order,
		"payment": payment,
	}

	if os.Getenv("STRIPE_TEST_KEY") != "" {
		sessionStripe, err := h.createStripeSession(c, order)
		if err != nil {
			slog.Error("error creating Stripe checkout session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Stripe checkout session"})
			return
		}
		if err := h.o.SetStripeSession(c.Request.Context(), order.ID, sessionStripe.ID); err != nil {
			slog.Error("error saving Stripe session", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		}
		response["checkout_session_url"] = sessionStripe.URL
	}

	slog.Info("order created", slog.String(logkey.TraceID, traceId),
		slog.String("OrderID", order.ID), slog.String("UserID", claims.Subject))
	c.JSON(http.StatusCreated, response)
}

func (h *Handler) createStripeSession(c *gin.Context, order orders.Order) (*stripe.CheckoutSession, error) {
	stripe.Key = os.Getenv("STRIPE_TEST_KEY")

	user, err := h.u.GetUserByID(c.Request.Context(), order.UserID)
	if err != nil {
		return nil, err
	}

	cents := decimal.NewFromInt(100)
	lineItems := []*stripe.CheckoutSessionLineItemParams{}
	var jsonLineItems []map[string]interface{}
	for _, item := range order.Items {
		product, err := h.p.GetProductByID(c.Request.Context(), item.ProductID)
		if err != nil {
			return nil, err
		}
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(item.Price.Mul(cents).IntPart()),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(product.Title),
				},
			},
		})
		jsonLineItems = append(jsonLineItems, map[string]interface{}{
			"product_id": item.ProductID,
			"quantity":   item.Quantity,
		})
	}

	jsonOutput, err := json.Marshal(jsonLineItems)
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		CustomerEmail: stripe.String(user.Email),
		SubmitType:    stripe.String("pay"),
		LineItems:     lineItems,
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(os.Getenv("STRIPE_SUCCESS_URL")),
		CancelURL:     stripe.String(os.Getenv("STRIPE_CANCEL_URL")),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"order_id": order.ID,
				"user_id":  order.UserID,
				"email":    user.Email,
				"products": string(jsonOutput),
			},
		},
	}
	return session.New(params)
}

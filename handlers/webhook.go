package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"shop-backend/internal/orders"
	"shop-backend/internal/payments"
	"shop-backend/internal/stores/kafka"
	"shop-backend/pkg/ctxmanage"
	"shop-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v81"
)

// Webhook receives Stripe payment events and moves the payment and order
// records. Status mutation stays external to the payment store itself.
func (h *Handler) Webhook(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	const maxBodyBytes = int64(65536)

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var event stripe.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		slog.Error("failed to bind webhook event", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			slog.Error("failed to unmarshal payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		orderId := paymentIntent.Metadata["order_id"]
		email := paymentIntent.Metadata["email"]
		slog.Info("payment intent succeeded", slog.String(logkey.TraceID, traceId),
			slog.String("OrderID", orderId), slog.String("PaymentIntentID", paymentIntent.ID))

		ctx := c.Request.Context()
		updated, err := h.pay.UpdateStatus(ctx, orderId, payments.StatusCompleted, paymentIntent.ID)
		if err != nil || !updated {
			slog.Error("failed to update payment", slog.String(logkey.TraceID, traceId), slog.Any(logkey.ERROR, err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
			return
		}
		if err := h.o.UpdateOrderStatus(ctx, orderId, orders.StatusPaid); err != nil {
			slog.Error("failed to update order", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
			return
		}

		if h.k != nil {
			go h.publishOrderPaid(orderId)
		}
		if email != "" {
			go func() {
				if err := sendOrderConfirmationEmail(email, orderId); err != nil {
					slog.Error("failed to send confirmation email", slog.String(logkey.ERROR, err.Error()))
				}
			}()
		}

		c.Status(http.StatusOK)

	case "payment_intent.payment_failed":
		var paymentIntent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
			slog.Error("failed to unmarshal payment intent", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		orderId := paymentIntent.Metadata["order_id"]
		if _, err := h.pay.UpdateStatus(c.Request.Context(), orderId, payments.StatusFailed, paymentIntent.ID); err != nil {
			slog.Error("failed to update payment", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update payment"})
			return
		}
		c.Status(http.StatusOK)

	default:
		slog.Info("unhandled event type", slog.String("EventType", string(event.Type)))
		c.JSON(http.StatusOK, gin.H{"message": "Event type not handled", "event": event.Type})
	}
}

func (h *Handler) publishOrderPaid(orderId string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	items, err := h.o.GetOrderItems(ctx, orderId)
	if err != nil {
		slog.Error("failed to fetch order items for event", slog.String(logkey.ERROR, err.Error()))
		return
	}
	for _, item := range items {
		data, err := json.Marshal(kafka.OrderPaidEvent{
			OrderId:   orderId,
			ProductId: item.ProductID,
			Quantity:  item.Quantity,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			slog.Error("failed to marshal OrderPaidEvent", slog.String(logkey.ERROR, err.Error()))
			return
		}
		if err := h.k.ProduceMessage(kafka.TopicOrderPaid, []byte(orderId), data); err != nil {
			slog.Error("failed to produce order paid event", slog.String(logkey.ERROR, err.Error()))
			return
		}
	}
}

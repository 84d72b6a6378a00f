// Package handlers exposes the REST surface: it authenticates the caller,
// validates request shape, calls into the stores and maps domain outcomes to
// transport status codes.
package handlers

import (
	"fmt"
	"net/http"
	"os"

	"shop-backend/internal/auth"
	"shop-backend/internal/cart"
	"shop-backend/internal/orders"
	"shop-backend/internal/payments"
	"shop-backend/internal/products"
	"shop-backend/internal/stores/kafka"
	"shop-backend/internal/users"
	"shop-backend/middleware"
	"shop-backend/pkg/ctxmanage"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	u        users.Conf
	p        products.Conf
	ct       cart.Conf
	o        orders.Conf
	pay      payments.Conf
	k        *kafka.Conf
	a        *auth.Keys
	validate *validator.Validate
}

func NewHandler(u users.Conf, p products.Conf, ct cart.Conf, o orders.Conf,
	pay payments.Conf, k *kafka.Conf, a *auth.Keys) *Handler {
	return &Handler{
		u:        u,
		p:        p,
		ct:       ct,
		o:        o,
		pay:      pay,
		k:        k,
		a:        a,
		validate: validator.New(),
	}
}

// API builds the router. Unknown paths yield 404, known paths with an
// unsupported method yield 405.
func API(a *auth.Keys, u users.Conf, p products.Conf, ct cart.Conf,
	o orders.Conf, pay payments.Conf, k *kafka.Conf) *gin.Engine {

	r := gin.New()
	mode := os.Getenv("GIN_MODE")
	if mode == gin.ReleaseMode {
		gin.SetMode(mode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	r.HandleMethodNotAllowed = true

	m, err := middleware.NewMid(a)
	if err != nil {
		panic(err)
	}
	h := NewHandler(u, p, ct, o, pay, k, a)

	r.Use(middleware.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
		AllowHeaders:    []string{"Authorization", "Content-Type"},
	}))

	r.GET("/ping", healthCheck)

	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	r.GET("/categories", h.ListCategories)
	r.GET("/categories/:id", h.GetCategory)
	r.POST("/categories", m.Authentication(), m.Authorize(h.CreateCategory, auth.RoleAdmin))

	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.POST("/products", m.Authentication(), m.Authorize(h.CreateProduct, auth.RoleAdmin))
	r.PUT("/products/:id", m.Authentication(), m.Authorize(h.UpdateProduct, auth.RoleAdmin))
	r.DELETE("/products/:id", m.Authentication(), m.Authorize(h.DeleteProduct, auth.RoleAdmin))

	cartGroup := r.Group("/cart")
	{
		cartGroup.Use(m.Authentication())
		cartGroup.GET("", m.Authorize(h.GetCart, auth.RoleUser))
		cartGroup.POST("/add_item", m.Authorize(h.AddCartItem, auth.RoleUser))
		cartGroup.DELETE("/remove_item", m.Authorize(h.RemoveCartItem, auth.RoleUser))
		cartGroup.PATCH("/update_item", m.Authorize(h.UpdateCartItem, auth.RoleUser))
	}

	orderGroup := r.Group("/orders")
	{
		orderGroup.Use(m.Authentication())
		orderGroup.GET("", m.Authorize(h.ListOrders, auth.RoleUser))
		orderGroup.POST("", m.Authorize(h.Checkout, auth.RoleUser))
	}

	r.GET("/payments", h.ListPayments)
	r.POST("/payments/webhook", h.Webhook)

	return r
}

func healthCheck(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	fmt.Println("healthCheck handler ", traceId)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

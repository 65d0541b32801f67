package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/commerce-backend/config"
	"github.com/storefront/commerce-backend/internal/app/controller"
	"github.com/storefront/commerce-backend/internal/metrics"
	"github.com/storefront/commerce-backend/internal/middleware"
)

// Controllers groups every HTTP handler set the router mounts.
type Controllers struct {
	Auth         *controller.AuthController
	CustomerAuth *controller.CustomerAuthController
	Business     *controller.BusinessController
	Customer     *controller.CustomerController
	Item         *controller.ItemController
	Cart         *controller.CartController
	Order        *controller.OrderController
	Invoice      *controller.InvoiceController
	Dashboard    *controller.DashboardController
	Upload       *controller.UploadController
	Feed         *controller.FeedController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
}

func NewRouter(controllers Controllers, authMiddleware *middleware.AuthMiddleware, cfg *config.Config) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Commerce API is running",
		})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Uploaded files are served from disk only with the local driver
	if r.config.Storage.Driver == "" || r.config.Storage.Driver == "local" {
		router.Static(r.config.Storage.MediaPath, r.config.Storage.MediaRoot)
	}

	ctl := r.controllers
	staff := r.authMiddleware.StaffAuth()
	tenant := r.authMiddleware.RequireTenant()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", ctl.Auth.Register)
			auth.POST("/login", ctl.Auth.Login)
			auth.POST("/refresh", ctl.Auth.Refresh)
			auth.POST("/logout", ctl.Auth.Logout)
			auth.POST("/forgot-password", ctl.Auth.ForgotPassword)
			auth.POST("/reset-password", ctl.Auth.ResetPassword)
			auth.GET("/me", staff, ctl.Auth.GetMe)
		}

		business := v1.Group("/business")
		business.Use(staff)
		{
			business.GET("/setup", ctl.Business.GetSetup)
			business.POST("/setup", ctl.Business.Setup)
			business.POST("/switch", ctl.Business.Switch)
			business.GET("", tenant, ctl.Business.Get)
			business.PUT("", tenant, ctl.Business.Update)
			business.POST("/members", tenant, ctl.Business.AddMember)
		}

		customers := v1.Group("/customers")
		customers.Use(staff, tenant)
		{
			customers.GET("", ctl.Customer.List)
			customers.POST("", ctl.Customer.Create)
			customers.GET("/:id", ctl.Customer.Get)
			customers.PUT("/:id", ctl.Customer.Update)
			customers.DELETE("/:id", ctl.Customer.Delete)
		}

		items := v1.Group("/items")
		items.Use(staff, tenant)
		{
			items.GET("", ctl.Item.List)
			items.POST("", ctl.Item.Create)
			items.GET("/low-stock", ctl.Item.LowStock)
			items.POST("/import", ctl.Item.Import)
			items.GET("/import/template", ctl.Item.ImportTemplate)
			items.GET("/:id", ctl.Item.Get)
			items.PUT("/:id", ctl.Item.Update)
			items.DELETE("/:id", ctl.Item.Delete)
			items.POST("/:id/stock", ctl.Item.AdjustStock)
		}

		orders := v1.Group("/orders")
		orders.Use(staff, tenant)
		{
			orders.GET("", ctl.Order.ListOrders)
			orders.GET("/export", ctl.Order.ExportOrders)
			orders.GET("/:number", ctl.Order.GetOrder)
			orders.PUT("/:number/status", ctl.Order.UpdateOrderStatus)
		}

		invoices := v1.Group("/invoices")
		invoices.Use(staff, tenant)
		{
			invoices.GET("", ctl.Invoice.List)
			invoices.POST("", ctl.Invoice.Create)
			invoices.GET("/:number", ctl.Invoice.Get)
			invoices.PUT("/:number/status", ctl.Invoice.UpdateStatus)
			invoices.GET("/:number/export", ctl.Invoice.Export)
		}

		v1.GET("/dashboard", staff, tenant, ctl.Dashboard.GetStats)

		upload := v1.Group("/upload")
		upload.Use(staff)
		{
			upload.POST("", ctl.Upload.Upload)
			upload.POST("/presigned-url", ctl.Upload.GeneratePresignedURL)
		}

		v1.GET("/ws/orders", staff, tenant, ctl.Feed.Orders)

		store := v1.Group("/store/:slug")
		store.Use(r.authMiddleware.Storefront())
		{
			store.GET("", ctl.Business.Storefront)
			store.GET("/items", ctl.Item.ListPublic)
			store.GET("/items/:id", ctl.Item.GetPublic)

			storeAuth := store.Group("/auth")
			{
				storeAuth.POST("/signup", ctl.CustomerAuth.Signup)
				storeAuth.POST("/login", ctl.CustomerAuth.Login)
				storeAuth.POST("/otp/request", ctl.CustomerAuth.RequestLoginCode)
				storeAuth.POST("/otp/verify", ctl.CustomerAuth.VerifyLoginCode)
				storeAuth.POST("/forgot-password", ctl.CustomerAuth.ForgotPassword)
				storeAuth.POST("/reset-password", ctl.CustomerAuth.ResetPassword)
				storeAuth.POST("/refresh", ctl.CustomerAuth.Refresh)
				storeAuth.POST("/logout", ctl.CustomerAuth.Logout)
			}

			account := store.Group("")
			account.Use(r.authMiddleware.CustomerAuth())
			{
				account.GET("/me", ctl.CustomerAuth.GetMe)
				account.PUT("/me/address", ctl.CustomerAuth.UpdateAddress)

				account.GET("/cart", ctl.Cart.GetCart)
				account.POST("/cart", ctl.Cart.AddToCart)
				account.PUT("/cart/:item_id", ctl.Cart.UpdateCartItem)
				account.DELETE("/cart/:item_id", ctl.Cart.RemoveFromCart)

				account.GET("/checkout/preview", ctl.Order.Preview)
				account.POST("/checkout", ctl.Order.Checkout)

				account.GET("/orders", ctl.Order.ListMyOrders)
				account.GET("/orders/:number", ctl.Order.GetMyOrder)
				account.POST("/orders/:number/cancel", ctl.Order.CancelMyOrder)
			}
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+middleware.BusinessHeader+", "+middleware.RequestIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", middleware.RequestIDHeader+", Content-Disposition")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

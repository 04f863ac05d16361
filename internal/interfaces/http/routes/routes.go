// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// SetupRoutes wires every service and handler onto the API group
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config) {
	// Services
	emailService := email.NewEmailService(cfg)
	notifier := email.NewOrderNotifier(emailService)
	paymentService := payment.NewRazorpayService(db, cfg)
	orderService := order.NewService(db, cfg, paymentService, notifier)
	cartService := cart.NewService(db, cart.NewRedisLocker(redisClient), cfg)
	checkoutService := checkout.NewService(db, cfg, cartService)
	productService := product.NewService(db, cfg)
	categoryService := product.NewCategoryService(db)
	reviewService := product.NewReviewService(db)
	userService := user.NewService(db, cfg)
	addressService := user.NewAddressService(db)
	userAdminService := user.NewAdminService(db, cfg)
	pdfService := pdf.NewService(cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService, cartService, cfg)
	cartHandler := handlers.NewCartHandler(cartService, cfg)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, cfg)
	orderHandler := handlers.NewOrderHandler(orderService, cfg)
	paymentHandler := handlers.NewPaymentHandler(paymentService, orderService, cfg)
	productHandler := handlers.NewProductHandler(productService, cfg)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	reviewHandler := handlers.NewReviewHandler(reviewService)
	profileHandler := handlers.NewUserProfileHandler(userService)
	addressHandler := handlers.NewUserAddressHandler(addressService)
	userAdminHandler := handlers.NewUserAdminHandler(userAdminService)
	invoiceHandler := handlers.NewInvoiceHandler(orderService, pdfService)

	// Public auth endpoints
	auth := rg.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.RefreshToken)
	}

	// Catalog, public with optional auth
	products := rg.Group("/products")
	products.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		products.GET("", productHandler.ListProducts)
		products.GET("/:id", productHandler.GetProduct)
		products.GET("/slug/:slug", productHandler.GetProductBySlug)
		products.GET("/:id/reviews", reviewHandler.GetProductReviews)
	}

	categories := rg.Group("/categories")
	{
		categories.GET("", categoryHandler.ListCategories)
		categories.GET("/:id", categoryHandler.GetCategory)
	}

	// Cart works for guests and users alike
	cartRoutes := rg.Group("/cart")
	cartRoutes.Use(middleware.OptionalAuthMiddleware(cfg))
	{
		cartRoutes.GET("", cartHandler.GetCart)
		cartRoutes.DELETE("", cartHandler.ClearCart)
		cartRoutes.GET("/count", cartHandler.GetCartCount)
		cartRoutes.POST("/items", cartHandler.AddToCart)
		cartRoutes.PUT("/items/:id", cartHandler.UpdateCartItem)
		cartRoutes.DELETE("/items/:id", cartHandler.RemoveFromCart)
	}

	// Authenticated customer endpoints
	authenticated := rg.Group("")
	authenticated.Use(middleware.AuthMiddleware(cfg))
	{
		authenticated.GET("/profile", profileHandler.GetProfile)
		authenticated.PUT("/profile", profileHandler.UpdateProfile)

		authenticated.GET("/addresses", addressHandler.ListAddresses)
		authenticated.POST("/addresses", addressHandler.CreateAddress)
		authenticated.GET("/addresses/:id", addressHandler.GetAddress)
		authenticated.PUT("/addresses/:id", addressHandler.UpdateAddress)
		authenticated.DELETE("/addresses/:id", addressHandler.DeleteAddress)
		authenticated.PUT("/addresses/:id/default", addressHandler.SetDefaultAddress)

		authenticated.POST("/checkout", checkoutHandler.Checkout)

		authenticated.GET("/orders", orderHandler.GetMyOrders)
		authenticated.GET("/orders/:id", orderHandler.GetMyOrder)
		authenticated.GET("/orders/:id/can-review", reviewHandler.CanReview)
		authenticated.GET("/orders/:id/invoice", invoiceHandler.DownloadInvoice)

		authenticated.POST("/reviews", reviewHandler.CreateReview)

		authenticated.POST("/payments/initiate", paymentHandler.InitiatePayment)
		authenticated.POST("/payments/verify", paymentHandler.VerifyPayment)
		authenticated.POST("/payments/failed", paymentHandler.PaymentFailed)
	}

	// Admin endpoints
	admin := rg.Group("/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.AdminMiddleware())
	{
		admin.GET("/orders", orderHandler.ListOrders)
		admin.GET("/orders/:id", orderHandler.GetOrder)
		admin.POST("/orders/:id/advance", orderHandler.AdvanceOrder)
		admin.POST("/orders/:id/report-issue", orderHandler.ReportIssue)
		admin.GET("/orders/:id/transactions", paymentHandler.GetTransactions)
		admin.GET("/orders/:id/invoice", invoiceHandler.DownloadInvoice)

		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
		admin.POST("/products/:id/images", productHandler.AddProductImage)
		admin.PUT("/products/:id/images/:imageId/primary", productHandler.SetPrimaryImage)
		admin.GET("/products/:id/reviews", reviewHandler.GetProductReviews)

		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		admin.POST("/reviews/:id/approve", reviewHandler.ApproveReview)
		admin.POST("/reviews/:id/reject", reviewHandler.RejectReview)

		admin.GET("/users", userAdminHandler.ListUsers)
		admin.GET("/users/:id", userAdminHandler.GetUser)
		admin.PUT("/users/:id/status", userAdminHandler.UpdateUserStatus)
		admin.PUT("/users/:id/admin", userAdminHandler.SetAdmin)
	}
}

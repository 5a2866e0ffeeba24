package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"library-backend/internal/shared/identity"
	"library-backend/internal/shared/middleware"
	"library-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		setupAuthRoutes(v1, c)
		setupBookRoutes(v1, c)
		setupMemberRoutes(v1, c)
		setupIssueRoutes(v1, c)
		setupReservationRoutes(v1, c)
		setupDashboardRoutes(v1, c)
	}

	return router
}

// ========================================
// AUTH ROUTES
// ========================================
func setupAuthRoutes(v1 *gin.RouterGroup, c *container.Container) {
	auth := v1.Group("/auth")
	{
		auth.POST("/register", c.AccountHandler.Register)
		auth.POST("/login", c.AccountHandler.Login)
		auth.POST("/accounts",
			middleware.AuthMiddleware(c.JWTManager),
			middleware.RequireRole(identity.RoleAdmin),
			c.AccountHandler.CreateAccount,
		)
	}
}

// ========================================
// BOOK ROUTES
// ========================================
func setupBookRoutes(v1 *gin.RouterGroup, c *container.Container) {
	books := v1.Group("/books")
	{
		books.GET("", c.BookHandler.ListBooks)
		books.GET("/:id", c.BookHandler.GetBook)
		books.GET("/:id/availability", c.BookHandler.GetAvailability)

		staff := books.Group("", middleware.AuthMiddleware(c.JWTManager), middleware.RequireStaff())
		{
			staff.POST("", c.BookHandler.CreateBook)
			staff.PUT("/:id", c.BookHandler.UpdateBook)
			staff.DELETE("/:id", c.BookHandler.DeleteBook)
			staff.GET("/:id/consistency", c.CirculationHandler.CheckConsistency)
		}
	}
}

// ========================================
// MEMBER ROUTES (staff)
// ========================================
func setupMemberRoutes(v1 *gin.RouterGroup, c *container.Container) {
	members := v1.Group("/members", middleware.AuthMiddleware(c.JWTManager), middleware.RequireStaff())
	{
		members.GET("", c.MemberHandler.ListMembers)
		members.POST("", c.MemberHandler.CreateMember)
		members.GET("/:id", c.MemberHandler.GetMember)
		members.PUT("/:id", c.MemberHandler.UpdateMember)
		members.DELETE("/:id", c.MemberHandler.DeleteMember)
	}
}

// ========================================
// ISSUE ROUTES
// ========================================
func setupIssueRoutes(v1 *gin.RouterGroup, c *container.Container) {
	issues := v1.Group("/issues", middleware.AuthMiddleware(c.JWTManager))
	{
		issues.GET("/my", c.CirculationHandler.MyTransactions)

		student := issues.Group("", middleware.RequireRole(identity.RoleStudent))
		{
			student.POST("/self-checkout", c.CirculationHandler.SelfCheckout)
			student.POST("/self-return", c.CirculationHandler.SelfReturn)
		}

		staff := issues.Group("", middleware.RequireStaff())
		{
			staff.POST("/issue", c.CirculationHandler.IssueBook)
			staff.POST("/return", c.CirculationHandler.ReturnBook)
			staff.GET("/transactions", c.CirculationHandler.ListTransactions)
		}
	}
}

// ========================================
// RESERVATION ROUTES
// ========================================
func setupReservationRoutes(v1 *gin.RouterGroup, c *container.Container) {
	reservations := v1.Group("/reservations", middleware.AuthMiddleware(c.JWTManager))
	{
		reservations.POST("", c.ReservationHandler.CreateReservation)
		reservations.GET("/my", c.ReservationHandler.MyReservations)
	}
}

// ========================================
// DASHBOARD ROUTES (staff)
// ========================================
func setupDashboardRoutes(v1 *gin.RouterGroup, c *container.Container) {
	dashboard := v1.Group("/dashboard", middleware.AuthMiddleware(c.JWTManager), middleware.RequireStaff())
	{
		dashboard.GET("/stats", c.CirculationHandler.DashboardStats)
	}
}

// ========================================
// HEALTH
// ========================================
func healthCheckHandler(appCtx *container.Container) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		services, healthy := appCtx.Health(ctx)

		status, code := "ok", http.StatusOK
		if !healthy {
			status, code = "degraded", http.StatusServiceUnavailable
		}

		c.JSON(code, gin.H{
			"status":    status,
			"timestamp": time.Now().Format(time.RFC3339),
			"version":   appCtx.Config.App.Version,
			"services":  services,
		})
	}
}

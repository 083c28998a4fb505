package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/Windi-Fikriyansyah/projectmarket/internal/auth"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/log"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/metrics"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/middleware"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/realtime"
	"github.com/Windi-Fikriyansyah/projectmarket/internal/services"
)

type Services struct {
	Auth          *services.AuthService
	Profiles      *services.ProfileService
	Projects      *services.ProjectService
	Messages      *services.MessageService
	Notifications *services.NotificationService
	Catalog       *services.CatalogService
	Orders        *services.OrderService
	Reviews       *services.ReviewService
	Dashboard     *services.DashboardService
}

type Options struct {
	Production      bool
	CORSOrigins     string
	UploadDir       string
	CookieTTL       time.Duration
	FrontendBaseURL string

	GoogleClientID string
	GoogleSecret   string
	GoogleRedirect string

	// AuthLimiter throttles the credential endpoints when set.
	AuthLimiter *middleware.RateLimiter
	// Hub enables the /ws endpoint.
	Hub *realtime.Hub
	// Ready backs /health; nil means always healthy.
	Ready func(ctx context.Context) error
}

// NewApp builds the fiber application with every route mounted.
func NewApp(svc Services, opt Options) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "projectmarket",
		ErrorHandler: ErrorHandler(opt.Production),
	})

	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(middleware.RequestLogger(log.WithComponent("http")))
	app.Use(metrics.Middleware())
	if opt.CORSOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins:     opt.CORSOrigins,
			AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			ExposeHeaders:    "Content-Length",
			AllowCredentials: true,
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		if opt.Ready != nil {
			if err := opt.Ready(c.UserContext()); err != nil {
				return fiber.NewError(fiber.StatusServiceUnavailable, "database unavailable")
			}
		}
		return ok(c, fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())
	if opt.UploadDir != "" {
		app.Static("/uploads", opt.UploadDir)
	}

	if opt.Hub != nil {
		socketH := NewSocketHandler(opt.Hub, svc.Auth, svc.Projects)
		app.Get("/ws", socketH.Upgrade, socketH.Serve())
	}

	Register(app.Group("/api"), svc, opt)
	return app
}

// Register mounts the REST API on r.
func Register(r fiber.Router, svc Services, opt Options) {
	authed := middleware.RequireAuth(svc.Auth)
	maybe := middleware.OptionalAuth(svc.Auth)
	adminOnly := middleware.RequireRoles(auth.RoleAdmin)
	freelancerOnly := middleware.RequireRoles(auth.RoleFreelancer)
	limited := func(c *fiber.Ctx) error { return c.Next() }
	if opt.AuthLimiter != nil {
		limited = opt.AuthLimiter.Handler()
	}

	authH := NewAuthHandler(svc.Auth, opt.CookieTTL, opt.Production)
	googleH := NewGoogleOAuthHandler(authH, opt.GoogleClientID, opt.GoogleSecret, opt.GoogleRedirect, opt.FrontendBaseURL)
	profileH := NewProfileHandler(svc.Profiles)
	projectH := NewProjectHandler(svc.Projects)
	chatH := NewChatHandler(svc.Messages)
	notifyH := NewNotificationHandler(svc.Notifications)
	categoryH := NewCategoryHandler(svc.Catalog)
	productH := NewProductHandler(svc.Catalog)
	orderH := NewOrderHandler(svc.Orders)
	reviewH := NewReviewHandler(svc.Reviews)
	dashH := NewDashboardHandler(svc.Dashboard)

	// auth
	r.Post("/auth/register", limited, authH.Register)
	r.Post("/auth/login", limited, authH.Login)
	r.Post("/auth/logout", authH.Logout)
	r.Post("/auth/forgot-password", limited, authH.ForgotPassword)
	r.Post("/auth/reset-password", limited, authH.ResetPassword)
	r.Get("/auth/verify-email/:token", authH.VerifyEmail)
	r.Get("/auth/google/start", googleH.Start)
	r.Get("/auth/google/callback", googleH.Callback)
	r.Get("/auth/me", authed, authH.Me)

	r.Get("/profile", authed, profileH.Get)
	r.Put("/profile", authed, profileH.Update)

	// projects
	r.Get("/projects", maybe, projectH.List)
	r.Post("/projects", authed, projectH.Create)
	r.Get("/projects/user/:userId", maybe, projectH.ListByUser)
	r.Get("/projects/:id", maybe, projectH.Get)
	r.Put("/projects/:id", authed, projectH.Update)
	r.Delete("/projects/:id", authed, projectH.Delete)
	r.Put("/projects/:id/status", authed, projectH.UpdateStatus)
	r.Post("/projects/:id/approve", authed, projectH.Approve)

	// messages
	r.Post("/messages", authed, chatH.SendMessage)
	r.Get("/messages/unread", authed, chatH.Unread)
	r.Get("/messages/unread/count", authed, chatH.UnreadCount)
	r.Get("/messages/project/:projectId", authed, chatH.ProjectMessages)
	r.Get("/messages/chat/:projectId/:recipientId", authed, chatH.Chat)
	r.Put("/messages/:id/read", authed, chatH.MarkAsRead)
	r.Delete("/messages/:id", authed, chatH.DeleteMessage)

	// notifications
	r.Get("/notifications", authed, notifyH.List)
	r.Get("/notifications/unread-count", authed, notifyH.UnreadCount)
	r.Put("/notifications/read-all", authed, notifyH.MarkAllRead)
	r.Put("/notifications/:id/read", authed, notifyH.MarkRead)
	r.Delete("/notifications/:id", authed, notifyH.Delete)

	// catalog
	r.Get("/categories", maybe, categoryH.GetCategories)
	r.Get("/categories/:id", categoryH.GetCategory)
	r.Post("/categories", authed, adminOnly, categoryH.Create)
	r.Put("/categories/:id", authed, adminOnly, categoryH.Update)

	r.Get("/products", productH.ListPublic)
	r.Get("/products/mine", authed, freelancerOnly, productH.ListMine)
	r.Get("/products/:id", productH.GetDetail)
	r.Post("/products", authed, freelancerOnly, productH.Create)
	r.Put("/products/:id", authed, productH.UpdateProduct)
	r.Delete("/products/:id", authed, productH.Delete)

	// orders
	r.Post("/orders", authed, orderH.Create)
	r.Get("/orders", authed, orderH.ListMine)
	r.Get("/orders/sales", authed, orderH.ListSales)
	r.Get("/orders/:id", authed, orderH.Get)
	r.Put("/orders/:id/status", authed, orderH.UpdateStatus)

	// reviews and ratings
	r.Post("/reviews", authed, reviewH.Create)
	r.Get("/reviews/mine", authed, reviewH.Mine)
	r.Get("/reviews/product/:productId", reviewH.ForProduct)
	r.Get("/reviews/moderation", authed, adminOnly, reviewH.Moderation)
	r.Put("/reviews/:id/status", authed, adminOnly, reviewH.SetStatus)
	r.Get("/ratings/criteria", reviewH.Criteria)
	r.Post("/ratings", authed, reviewH.Rate)
	r.Get("/ratings/product/:productId", reviewH.ProductRatings)
	r.Get("/ratings/product/:productId/mine", authed, reviewH.MyRatings)

	r.Get("/dashboard/stats", authed, dashH.Stats)
}

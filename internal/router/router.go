package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/handler"
	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/model"
)

// Handlers bundles every HTTP handler the API exposes.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Trip         *handler.TripHandler
	Reservation  *handler.ReservationHandler
	Chat         *handler.ChatHandler
	Notification *handler.NotificationHandler
	Admin        *handler.AdminHandler
	WS           *handler.WSHandler
}

// Options carries the middleware and settings shared by the route groups.
// A nil RateLimit or Cache means the feature is off.
type Options struct {
	JWTSecret string
	RateLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	UploadDir string // served under /uploads when set
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func orPassthrough(m echo.MiddlewareFunc) echo.MiddlewareFunc {
	if m == nil {
		return passthrough
	}
	return m
}

// Register wires the whole API onto e.
func Register(e *echo.Echo, db handler.Pinger, h Handlers, opt Options) {
	RegisterRoutes(e, db)
	if opt.UploadDir != "" {
		e.Static("/uploads", opt.UploadDir)
	}
	e.GET("/ws", h.WS.Serve, middleware.OptionalJWT(opt.JWTSecret))

	// Every /api request is identified when it carries a valid token so the
	// rate limiter and the cache can key on the caller.
	api := e.Group("/api", middleware.OptionalJWT(opt.JWTSecret), orPassthrough(opt.RateLimit))
	auth := middleware.JWTAuth(opt.JWTSecret)

	RegisterAuth(api, h.Auth, auth)
	RegisterUsers(api, h.User)
	RegisterTrips(api, h.Trip, auth, orPassthrough(opt.Cache))
	RegisterReservations(api, h.Reservation, auth)
	RegisterChat(api, h.Chat, auth)
	RegisterNotifications(api, h.Notification, auth)
	RegisterAdmin(api, h.Admin, auth)
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// RegisterAuth registers registration, session and own-profile routes.
// Session routes are public; logout accepts either a refresh token or a
// bearer token.
func RegisterAuth(api *echo.Group, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	g.GET("/me", a.Me, auth)
	g.PUT("/me", a.UpdateMe, auth)
	g.POST("/me/photo", a.UpdatePhoto, auth)
	g.PUT("/password", a.ChangePassword, auth)
	g.POST("/phone/send-code", a.SendPhoneCode, auth)
	g.POST("/phone/verify", a.VerifyPhone, auth)
}

// RegisterUsers exposes public profiles.
func RegisterUsers(api *echo.Group, u *handler.UserHandler) {
	g := api.Group("/users")
	g.GET("/:id", u.Profile)
	g.GET("/:id/ratings", u.Ratings)
}

// RegisterTrips registers browse routes for everyone and publishing routes
// for drivers.  Only the search listing goes through the response cache.
func RegisterTrips(api *echo.Group, t *handler.TripHandler, auth, cache echo.MiddlewareFunc) {
	driver := middleware.RequireRole(model.RoleDriver)

	g := api.Group("/trips")
	g.GET("", t.Search, cache)
	g.GET("/estimate/price", t.EstimatePrice)
	g.GET("/estimate/time", t.EstimateTime)
	g.GET("/mine", t.Mine, auth, driver)
	g.GET("/:id", t.Get)
	g.POST("", t.Create, auth, driver)
	g.PATCH("/:id", t.Update, auth, driver)
	g.DELETE("/:id", t.Delete, auth, driver)
}

// RegisterReservations registers the booking lifecycle.  Party checks
// beyond the role happen in the service; rating is gated on the
// reservation's passenger only, so a passenger later promoted to driver can
// still rate past trips.
func RegisterReservations(api *echo.Group, r *handler.ReservationHandler, auth echo.MiddlewareFunc) {
	passenger := middleware.RequireRole(model.RolePassenger)
	driver := middleware.RequireRole(model.RoleDriver)

	g := api.Group("/reservations", auth)
	g.POST("", r.Create, passenger)
	g.GET("", r.List)
	g.GET("/:id", r.Get)
	g.PATCH("/:id/confirm", r.Confirm, driver)
	g.PATCH("/:id/reject", r.Reject, driver)
	g.PATCH("/:id/cancel", r.Cancel)
	g.POST("/:id/rating", r.Rate)
}

func RegisterChat(api *echo.Group, ch *handler.ChatHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/chats", auth)
	g.GET("/contacts", ch.Contacts)
	g.GET("/unread-count", ch.UnreadCount)
	g.GET("/:userId", ch.Conversation)
	g.POST("", ch.Send)
}

func RegisterNotifications(api *echo.Group, n *handler.NotificationHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/notifications", auth)
	g.GET("", n.List)
	g.GET("/unread-count", n.UnreadCount)
	g.PATCH("/read-all", n.MarkAllRead)
	g.PATCH("/:id/read", n.MarkRead)
}

// RegisterAdmin registers the driver application routes for passengers and
// the review routes for administrators.
func RegisterAdmin(api *echo.Group, a *handler.AdminHandler, auth echo.MiddlewareFunc) {
	req := api.Group("/driver-requests", auth, middleware.RequireRole(model.RolePassenger))
	req.POST("", a.SubmitRequest)
	req.GET("/mine", a.MyRequests)

	g := api.Group("/admin", auth, middleware.RequireRole(model.RoleAdmin))
	g.GET("/drivers/pending", a.PendingDrivers)
	g.PATCH("/drivers/:id/verify", a.VerifyDriver)
	g.DELETE("/drivers/:id/reject", a.RejectDriver)
	g.GET("/driver-requests", a.ListRequests)
	g.PATCH("/driver-requests/:id/approve", a.ApproveRequest)
	g.PATCH("/driver-requests/:id/reject", a.RejectRequest)
	g.GET("/stats", a.Stats)
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/pizza-rush/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/pizza-rush/internal/middleware" // import middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh).  Each of
	// these handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Register a POST endpoint to log out.  The handler accepts either a
	// bearer token or a JSON body containing a `refresh_token` and will
	// invalidate the token(s).
	g.POST("/logout", a.Logout)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)

	// Additionally map POST /v1/logout to the same handler so clients can
	// terminate a session with either path.
	e.POST("/v1/logout", a.Logout)
}

// RegisterGame registers the gameplay endpoints: session lifecycle, the
// order queue and the wallet.  Every route requires a valid access token,
// and the optional rate limiter (nil disables it) is applied to the whole
// group so a runaway client cannot hammer the queue.
func RegisterGame(e *echo.Echo, s *handler.SessionHandler, o *handler.OrderHandler, w *handler.WalletHandler, jwtSecret string, limiter, queueCache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	if limiter != nil {
		g.Use(limiter)
	}

	// Session lifecycle.  Starting a session spins up the order spawner for
	// that session; ending it (or going idle) shuts the spawner down.
	g.POST("/session/start", s.Start)
	g.POST("/session/end", s.End)
	g.GET("/session", s.Current)

	// The order queue.  Listing is shared between all couriers; claiming is
	// first-come-first-served.  The short-TTL cache sits on the listing
	// only, since it is the one route every connected client polls.
	if queueCache != nil {
		g.GET("/orders", o.ListQueued, queueCache)
	} else {
		g.GET("/orders", o.ListQueued)
	}
	g.GET("/orders/past", o.ListPast)
	g.POST("/orders/claim", o.Claim)
	g.PATCH("/orders/:id/status", o.UpdateStatus)
	g.POST("/orders/generate", o.Generate)

	// Wallet and progression.
	g.GET("/wallet", w.Balance)
	g.GET("/stats", w.DeliveryStats)
	g.GET("/achievements", w.Achievements)
}

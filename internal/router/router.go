package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/daruji/giveaway/internal/handler"
	"github.com/daruji/giveaway/internal/middleware"
)

// RegisterRoutes registers routes that do not depend on any handler
// state. Currently it exposes only a health check, which load balancers
// and monitoring systems use to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI wires the listing, reservation, identity and stream
// endpoints. Reads and the snapshot stream are open to everyone, the
// way the original board was browsable before picking a name. Mutating
// routes require a declared identity and, when a limiter is supplied,
// run behind it.
func RegisterAPI(
	e *echo.Echo,
	items *handler.ItemHandler,
	reservations *handler.ReservationHandler,
	ident *handler.IdentityHandler,
	streamH *handler.StreamHandler,
	identitySecret string,
	limiter echo.MiddlewareFunc,
) {
	// Declaring a name is how a session starts; no token required.
	e.POST("/v1/identity", ident.Declare)

	// Open reads. The static /stream route must be registered alongside
	// /:id; Echo matches static segments first.
	e.GET("/v1/items", items.ListItems)
	e.GET("/v1/items/stream", streamH.StreamItems)
	e.GET("/v1/items/:id", items.GetItem)

	// Everything that writes, or is scoped to the caller, needs a
	// declared identity.
	auth := e.Group("/v1", middleware.DeclaredIdentity(identitySecret))
	if limiter != nil {
		auth.Use(limiter)
	}
	auth.GET("/items/mine", items.MyItems)
	auth.POST("/items", items.CreateItem)
	auth.POST("/items/:id/reserve", reservations.Reserve)
	auth.DELETE("/items/:id/reservation", reservations.CancelReservation)
	auth.DELETE("/items/:id", reservations.DeleteItem)
}

package handler

import (
	"net/http"
	"regexp"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"voyagepay/internal/database"
	"voyagepay/internal/service"
)

var programPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

func registerValidations() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		// Loyalty programs are lowercase slugs, e.g. chase-ur, amex-mr.
		v.RegisterValidation("program", func(fl validator.FieldLevel) bool {
			return programPattern.MatchString(fl.Field().String())
		})
	}
}

func NewRouter(svc service.PaymentService, health database.Service, log *zap.Logger, jwtSecret []byte) *gin.Engine {
	registerValidations()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(cors.Default())

	h := NewPaymentHandler(svc, log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, health.Health())
	})
	r.POST("/webhooks/stripe", h.StripeWebhook)

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.POST("/intents", h.CreateIntent)
		api.GET("/intents/:id", h.GetIntent)
		api.POST("/intents/:id/confirm", h.ConfirmIntent)
		api.POST("/intents/:id/refund", h.RefundIntent)
		api.GET("/bookings/:id/transactions", h.BookingTransactions)
	}

	return r
}

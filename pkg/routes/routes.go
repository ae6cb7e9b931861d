package pkg

import (
	"context"
	"os"

	"LifeLink/internal/alert"
	"LifeLink/internal/auth"
	"LifeLink/internal/config"
	"LifeLink/internal/donor"
	"LifeLink/internal/hospital"
	appmw "LifeLink/pkg/middleware"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var EchoModules = fx.Module("echo",
	fx.Provide(config.NewLogger),
	fx.Provide(NewEchoServer),
	fx.Provide(config.NewMongoDBConfig),
	fx.Provide(config.NewMongoDBClient),
	fx.Provide(config.NewResendConfig),
	fx.Provide(config.NewEmailService),
	fx.Provide(config.NewTwilioConfig),
	fx.Provide(config.NewSMSService),
	fx.Provide(config.NewFCMConfig),
	fx.Provide(config.NewPushService),
	fx.Provide(auth.NewUserRepository),
	fx.Provide(auth.NewUserService),
	fx.Provide(auth.NewAuthHandler),
	fx.Provide(donor.NewRepository),
	fx.Provide(donor.NewService),
	fx.Provide(donor.NewHandler),
	fx.Provide(hospital.NewRepository),
	fx.Provide(hospital.NewService),
	fx.Provide(hospital.NewHandler),
	fx.Provide(alert.NewRepository),
	fx.Provide(alert.NewMatcher),
	fx.Provide(alert.NewDispatcher),
	fx.Provide(alert.NewService),
	fx.Provide(alert.NewHandler),
	fx.Provide(alert.NewSweeper),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(StartSweeper),
)

func NewEchoServer(lc fx.Lifecycle, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.PATCH, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("starting HTTP server", zap.String("port", port))
			go func() {
				if err := e.Start(":" + port); err != nil {
					log.Error("HTTP server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down HTTP server ...")
			return e.Shutdown(ctx)
		},
	})
	return e
}

func RegisterRoutes(
	e *echo.Echo,
	authHandler *auth.AuthHandler,
	donorHandler *donor.Handler,
	hospitalHandler *hospital.Handler,
	alertHandler *alert.Handler,
) {
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)

	api := e.Group("/api", appmw.JWTMiddleware)
	api.GET("/profile", authHandler.Profile)

	alerts := api.Group("/alerts", appmw.CasbinMiddleware)
	alerts.POST("", alertHandler.Create)
	alerts.GET("/active", alertHandler.Active)
	alerts.GET("/hospital", alertHandler.HospitalAlerts)
	alerts.POST("/:id/respond", alertHandler.Respond)
	alerts.PATCH("/:id/status", alertHandler.UpdateStatus)

	donors := api.Group("/donors", appmw.CasbinMiddleware)
	donors.GET("/profile", donorHandler.GetProfile)
	donors.PATCH("/profile", donorHandler.UpdateProfile)
	donors.PATCH("/fcm-token", donorHandler.UpdateFCMToken)

	hospitals := api.Group("/hospitals", appmw.CasbinMiddleware)
	hospitals.GET("/profile", hospitalHandler.GetProfile)
	hospitals.PATCH("/profile", hospitalHandler.UpdateProfile)
	hospitals.PATCH("/inventory", hospitalHandler.UpdateInventory)
}

func StartSweeper(lc fx.Lifecycle, sweeper *alert.Sweeper) {
	sweeper.Start(lc)
}

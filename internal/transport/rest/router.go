package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mintlite/invest_tracker/config"
	"github.com/mintlite/invest_tracker/internal/transport/rest/middleware"
)

func NewRouter(cfg *config.Config, ctrl *Controller) *gin.Engine {
	if !cfg.API.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.POST("/accounts", ctrl.CreateAccount)

	investments := r.Group("/investments")
	{
		investments.POST("", ctrl.CreateHolding)
		investments.GET("", ctrl.ListHoldings)
		investments.POST("/refresh-prices", ctrl.RefreshPrices)
		investments.GET("/portfolio-value", ctrl.GetPortfolioValue)
		investments.GET("/portfolio-return", ctrl.GetPortfolioReturn)
		investments.GET("/report", ctrl.DownloadReport)
		investments.GET("/:id", ctrl.GetHolding)
		investments.PATCH("/:id", ctrl.UpdateHolding)
		investments.DELETE("/:id", ctrl.DeleteHolding)
	}

	goals := r.Group("/goals")
	{
		goals.POST("", ctrl.CreateGoal)
		goals.GET("", ctrl.ListGoals)
		goals.PATCH("/:id/progress", ctrl.UpdateGoalProgress)
	}

	return r
}

package main

import (
	"context"

	"bitwise74/paste-api/app"
	"bitwise74/paste-api/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	router, err := app.NewRouter(context.Background())
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting")

	err = router.Run(":" + viper.GetString("host.port"))
	if err != nil {
		panic(err)
	}
}

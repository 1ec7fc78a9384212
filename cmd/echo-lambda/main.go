package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"echo-func/internal/echo"
	"echo-func/internal/lambdahost"
	"echo-func/pkg/logger"
)

func main() {
	log := logger.Get()
	zap.ReplaceGlobals(log)

	lambda.Start(lambdahost.Handler(echo.NewResponder(echo.WithLogger(log)), log))
}

package main

import (
	"context"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/boogy/jencoder/pkg/handler"
)

var bootstrap *handler.Bootstrap

func init() {
	var err error
	bootstrap, err = handler.NewBootstrap(context.Background())
	if err != nil {
		panic(err)
	}
}

func main() {
	apiHandler := handler.NewAwsApiGatewayFromBootstrap(bootstrap)

	lambda.Start(func(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		// Ship the logs of this invocation before the environment is frozen
		defer bootstrap.Flush(ctx)
		return apiHandler.Handler(ctx, event)
	})
}

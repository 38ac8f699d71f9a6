package main

import (
	"context"

	"github.com/outofforest/run"
)

func main() {
	run.New().Run(context.Background(), "marshal", func(ctx context.Context) error {
		return rootCmd().ExecuteContext(ctx)
	})
}

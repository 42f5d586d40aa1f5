// Package main is the entry point for the home dispatch engine.
//
// @title                       Home Dispatch API
// @version                     1.0
// @description                 Resolves smart-home instructions against a device catalog and dispatches them to an automation agent.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"os"

	_ "home_dispatch/docs"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	_ "talkregistration/docs"
)

// @title DevOpsDay Medellín Talk Registration API
// @version 1.0
// @description Talk catalogue, registrations with capacity limits, and attendee accounts for DevOpsDay Medellín.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.

var rootCmd = &cobra.Command{
	Use:           "devopsday",
	Short:         "DevOpsDay Medellín talk registration service",
	Long:          "devopsday serves the talk catalogue and registration API for DevOpsDay Medellín, and manages its database schema and agenda seed data.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

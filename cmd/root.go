package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-auth",
	Short: "Local face enrollment and authentication",
	Long: `Face Auth enrolls users from face images, keeps a separate list of users
allowed to authenticate, and verifies new face images against that list.

Enrolled users live in one directory and authorized users in another; each
user is a single JSON file. Feature vectors are produced by an external
face-embedding backend (a local script or an embedding server).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default: $FACEAUTH_CONFIG)")
	rootCmd.PersistentFlags().String("enroll-dir", "", "Directory holding enrolled users")
	rootCmd.PersistentFlags().String("auth-dir", "", "Directory holding authorized users")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

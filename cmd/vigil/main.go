package main

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Uptime monitoring engine",
	Long: `Vigil периодически проверяет HTTP, TCP, ICMP, DNS, MQTT, RADIUS и push цели,
ведет историю heartbeat и рассылает уведомления при смене статуса.`,
	SilenceUsage: true,
}

func init() {
	defaultPath := os.Getenv("VIGIL_CONFIG")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to config.yaml")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

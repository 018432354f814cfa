package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/isml-go/isml/config"
	"github.com/isml-go/isml/log"
	"github.com/isml-go/isml/metrics"
)

// BindConfig is the configuration for the TCP interface the demo
// service listens on.
type BindConfig struct {
	Interface string
	Port      uint16
}

func (c *BindConfig) Log(fields log.Fields) {
	fields.Add("bind.interface", c.Interface)
	fields.Add("bind.port", c.Port)
}

func (c *BindConfig) Configure(v *viper.Viper) error {
	c.Interface = v.GetString("bind.interface")
	if len(c.Interface) == 0 {
		c.Interface = "127.0.0.1"
	}
	c.Port = uint16(v.GetUint32("bind.port"))
	if c.Port == 0 {
		c.Port = 14000
	}
	return nil
}

func (c *BindConfig) Bind(v *viper.Viper, cmd *cobra.Command) error {
	cmd.PersistentFlags().String("bind.interface", "127.0.0.1", "network interface the messaging service listens on")
	cmd.PersistentFlags().Uint32("bind.port", 14000, "TCP port the messaging service listens on")
	return nil
}

// Config is the demo binary's top-level configuration, implementing
// isml/config.Config: it aggregates every ambient Binder the service
// needs (TCP bind address, log level, metrics mode).
type Config struct {
	Bind    BindConfig
	Logging log.Config
	Metrics metrics.MetricsConfig
}

func (c *Config) Use() string {
	return "isml-gatewayd"
}

func (c *Config) EnvPrefix() string {
	return "ISML"
}

func (c *Config) Binders() []config.Binder {
	return []config.Binder{&c.Bind, &c.Logging, &c.Metrics}
}

func (c *Config) Log(fields log.Fields) {
	c.Bind.Log(fields)
	c.Logging.Log(fields)
	c.Metrics.Log(fields)
}

/*
 *	nativebridge connects embedded web content to a native host.
 *	Copyright (C) 2022 Arsen Musayelyan
 *
 *	This program is free software: you can redistribute it and/or modify
 *	it under the terms of the GNU General Public License as published by
 *	the Free Software Foundation, either version 3 of the License, or
 *	(at your option) any later version.
 *
 *	This program is distributed in the hope that it will be useful,
 *	but WITHOUT ANY WARRANTY; without even the implied warranty of
 *	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 *	GNU General Public License for more details.
 *
 *	You should have received a copy of the GNU General Public License
 *	along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment variable overrides,
// such as NATIVEBRIDGE_ADDR or NATIVEBRIDGE_LOCATION_LATITUDE
const EnvPrefix = "NATIVEBRIDGE"

type Config struct {
	Addr         string        `mapstructure:"addr"`
	DBPath       string        `mapstructure:"db"`
	Scheme       string        `mapstructure:"scheme"`
	LogLevel     string        `mapstructure:"log_level"`
	// ReplyTimeout bounds how long the host takes to answer a call
	ReplyTimeout time.Duration `mapstructure:"reply_timeout"`
	Location     Location      `mapstructure:"location"`
	// ConfirmAnswer is how the headless host answers confirm
	// dialogs, "confirm" or "cancel"
	ConfirmAnswer string `mapstructure:"confirm_answer"`
}

type Location struct {
	Latitude  float64 `mapstructure:"latitude"`
	Longitude float64 `mapstructure:"longitude"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":8089")
	v.SetDefault("db", "nativebridge.db")
	v.SetDefault("scheme", "appscheme")
	v.SetDefault("log_level", "info")
	v.SetDefault("reply_timeout", 10*time.Second)
	v.SetDefault("location.latitude", 0.0)
	v.SetDefault("location.longitude", 0.0)
	v.SetDefault("confirm_answer", "confirm")
}

// Load reads the configuration. Values come from, in increasing
// priority, the defaults, the file at path if it's not empty, and
// the environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values that can't be used as given
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is empty"))
	}
	if c.Scheme == "" || strings.Contains(c.Scheme, ":") {
		errs = append(errs, fmt.Errorf("invalid scheme %q", c.Scheme))
	}
	if c.ReplyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("reply_timeout must be positive, got %s", c.ReplyTimeout))
	}
	switch c.ConfirmAnswer {
	case "confirm", "cancel":
	default:
		errs = append(errs, fmt.Errorf("confirm_answer must be confirm or cancel, got %q", c.ConfirmAnswer))
	}
	return errors.Join(errs...)
}

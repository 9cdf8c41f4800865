// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package core

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gobuffalo/envy"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/devblok/koru/instance"
)

// Configuration keys, read from the environment or a dotenv file
const (
	EnvDebug      = "KORU_DEBUG"
	EnvExtensions = "KORU_EXTENSIONS"
	EnvLayers     = "KORU_LAYERS"
	EnvAppName    = "KORU_APP_NAME"
	EnvLogLevel   = "KORU_LOG_LEVEL"
	EnvLogFormat  = "KORU_LOG_FORMAT"
)

// Configuration defines a global engine configuration setting
type Configuration struct {
	Instance InstanceConfiguration
	Log      LogConfiguration
}

// InstanceConfiguration is used to configure instance creation
type InstanceConfiguration struct {
	// DebugMode turns the debug validation layer on or off. Nil keeps
	// the build default: on only with the debug tag.
	DebugMode *bool

	Extensions      []instance.Extension
	Layers          []instance.ValidationLayer
	ApplicationName string
}

// Options turns the configuration into options for instance.New.
func (c InstanceConfiguration) Options() []instance.Option {
	var opts []instance.Option
	if c.DebugMode != nil {
		opts = append(opts, instance.WithDebugLayer(*c.DebugMode))
	}
	if c.ApplicationName != "" {
		opts = append(opts, instance.WithApplication(c.ApplicationName, driverVersion))
	}
	return opts
}

// LogConfiguration is used to configure the logger
type LogConfiguration struct {
	Level logrus.Level

	// Format is either "text" or "json"
	Format string
}

// DefaultConfiguration is used when nothing is configured.
func DefaultConfiguration() Configuration {
	return Configuration{
		Instance: InstanceConfiguration{
			ApplicationName: "Koru3D",
		},
		Log: LogConfiguration{
			Level:  logrus.InfoLevel,
			Format: "text",
		},
	}
}

// LoadConfiguration reads the configuration. Values come from the
// process environment first, then from the dotenv file at path if one
// is given, then from DefaultConfiguration.
func LoadConfiguration(path string) (Configuration, error) {
	file := map[string]string{}
	if path != "" {
		var err error
		if file, err = godotenv.Read(path); err != nil {
			return Configuration{}, errors.Wrapf(err, "reading configuration %s", path)
		}
	}
	// An empty variable counts as unset.
	lookup := func(key string) string {
		if v := envy.Get(key, ""); v != "" {
			return v
		}
		return file[key]
	}

	cfg := DefaultConfiguration()
	if v := lookup(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return Configuration{}, errors.Wrapf(err, "parsing %s", EnvDebug)
		}
		cfg.Instance.DebugMode = &debug
	}

	exts, err := instance.ParseExtensions(splitList(lookup(EnvExtensions)))
	if err != nil {
		return Configuration{}, errors.Wrapf(err, "parsing %s", EnvExtensions)
	}
	cfg.Instance.Extensions = exts

	layers, err := instance.ParseValidationLayers(splitList(lookup(EnvLayers)))
	if err != nil {
		return Configuration{}, errors.Wrapf(err, "parsing %s", EnvLayers)
	}
	cfg.Instance.Layers = layers

	if v := lookup(EnvAppName); v != "" {
		cfg.Instance.ApplicationName = v
	}

	if v := lookup(EnvLogLevel); v != "" {
		level, err := logrus.ParseLevel(v)
		if err != nil {
			return Configuration{}, errors.Wrapf(err, "parsing %s", EnvLogLevel)
		}
		cfg.Log.Level = level
	}

	if v := lookup(EnvLogFormat); v != "" {
		switch v {
		case "text", "json":
			cfg.Log.Format = v
		default:
			return Configuration{}, errors.Newf("parsing %s: unknown log format %q", EnvLogFormat, v)
		}
	}
	return cfg, nil
}

func splitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.Split(v, ",")
}

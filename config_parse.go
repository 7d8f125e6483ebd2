package tutornewrelic

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// ReadConfig unmarshals the host CLI's config file and slurps in its data.
// The file may contain any number of keys owned by the host or by other
// plugins; only the NEWRELIC_* keys are read.
func ReadConfig(path string) (c Config, err error) {
	f, err := os.Open(path)
	if err != nil {
		return c, err
	}
	defer f.Close()
	return readConfig(f)
}

func readConfig(r io.Reader) (c Config, err error) {
	bts, err := ioutil.ReadAll(r)
	if err != nil {
		return
	}
	err = yaml.Unmarshal(bts, &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "parsing config file")
	}
	return finishConfig(c)
}

// DecodeConfig unpacks an already-loaded host configuration map into a
// Config. Hosts that keep their configuration in memory hand the plugin a
// generic map rather than a file path.
func DecodeConfig(input map[string]interface{}) (c Config, err error) {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &c,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return c, err
	}
	if err = decoder.Decode(input); err != nil {
		return Config{}, errors.Wrap(err, "decoding configuration")
	}
	return finishConfig(c)
}

// finishConfig applies environment overrides, fills defaults and
// validates. Both config entry points funnel through here.
func finishConfig(c Config) (Config, error) {
	if err := envconfig.Process("", &c); err != nil {
		return c, err
	}

	if c.RegionCode == "" {
		c.RegionCode = DefaultRegionCode
	}
	if c.MonitoringPeriod == "" {
		c.MonitoringPeriod = DefaultMonitoringPeriod
	}
	if c.MonitoringLocation == "" {
		c.MonitoringLocation = DefaultMonitoringLocation
	}

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

package tutornewrelic

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// Defaults applied to optional configuration keys when the host config
// leaves them unset.
const (
	DefaultRegionCode         = "US"
	DefaultMonitoringPeriod   = "EVERY_5_MINUTES"
	DefaultMonitoringLocation = "AWS_US_EAST_1"
)

// AccountID is a New Relic account id. Host config stores sometimes quote
// scalar values, so both `1234567` and `'1234567'` decode.
type AccountID int

func (a *AccountID) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case int:
		*a = AccountID(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("account id %q is not an integer", v)
		}
		*a = AccountID(n)
	case nil:
		*a = 0
	default:
		return fmt.Errorf("account id has unexpected type %T", raw)
	}
	return nil
}

// MonitorSpec is one entry of NEWRELIC_SYNTHETICS_MONITORS: the recipient
// to notify plus the URLs to check.
type MonitorSpec struct {
	Recipient string   `yaml:"recipient"`
	URLs      []string `yaml:"urls"`
}

// Config holds every setting this plugin reads from the host CLI's
// configuration store. The host stores plugin keys in UPPERCASE, so the
// yaml tags mirror the key names verbatim.
type Config struct {
	APIKey             string        `yaml:"NEWRELIC_API_KEY" envconfig:"NEWRELIC_API_KEY"`
	AccountID          AccountID     `yaml:"NEWRELIC_ACCOUNT_ID" envconfig:"NEWRELIC_ACCOUNT_ID"`
	RegionCode         string        `yaml:"NEWRELIC_REGION_CODE" envconfig:"NEWRELIC_REGION_CODE"`
	Name               string        `yaml:"NEWRELIC_NAME" envconfig:"NEWRELIC_NAME"`
	MonitoringPeriod   string        `yaml:"NEWRELIC_MONITORING_PERIOD" envconfig:"NEWRELIC_MONITORING_PERIOD"`
	MonitoringLocation string        `yaml:"NEWRELIC_MONITORING_LOCATION" envconfig:"NEWRELIC_MONITORING_LOCATION"`
	Monitors           []MonitorSpec `yaml:"NEWRELIC_SYNTHETICS_MONITORS" ignored:"true"`
}

// ConfigurationError reports a missing or malformed plugin setting. It is
// always raised before any network call is made, so fixing the named key
// and re-running is safe.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s %s", e.Key, e.Reason)
}

// InstanceLabel returns the label used to derive resource names on the
// vendor platform. Falls back to the account id when NEWRELIC_NAME is not
// set.
func (c *Config) InstanceLabel() string {
	if c.Name != "" {
		return c.Name
	}
	return strconv.Itoa(int(c.AccountID))
}

// Validate checks the configuration the way the contract requires:
// credentials present, region inside the supported set, and every monitor
// spec carrying at least one URL and a parseable recipient address.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return &ConfigurationError{Key: "NEWRELIC_API_KEY", Reason: "is required"}
	}
	if c.AccountID <= 0 {
		return &ConfigurationError{Key: "NEWRELIC_ACCOUNT_ID", Reason: "is required and must be a positive integer"}
	}
	if c.RegionCode != "US" && c.RegionCode != "EU" {
		return &ConfigurationError{
			Key:    "NEWRELIC_REGION_CODE",
			Reason: fmt.Sprintf("must be US or EU, got %q", c.RegionCode),
		}
	}
	for i, spec := range c.Monitors {
		if len(spec.URLs) == 0 {
			return &ConfigurationError{
				Key:    "NEWRELIC_SYNTHETICS_MONITORS",
				Reason: fmt.Sprintf("entry %d has no urls", i),
			}
		}
		if _, err := mail.ParseAddress(spec.Recipient); err != nil {
			return &ConfigurationError{
				Key:    "NEWRELIC_SYNTHETICS_MONITORS",
				Reason: fmt.Sprintf("entry %d recipient %q is not a valid email address", i, spec.Recipient),
			}
		}
	}
	return nil
}

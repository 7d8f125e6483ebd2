package tutornewrelic

// Version of the plugin, surfaced to the host CLI's plugin loader.
const Version = "0.1.0"

// Descriptor is the static plugin metadata the host CLI's plugin loader
// consumes. It declares the configuration keys this plugin recognizes and
// their defaults so the host can merge them into its global config. No
// logic lives here.
type Descriptor struct {
	Name     string                 `yaml:"name"`
	Version  string                 `yaml:"version"`
	Defaults map[string]interface{} `yaml:"defaults"`
}

// Describe returns the plugin descriptor. Keys with a nil default have no
// usable value until the operator sets one.
func Describe() Descriptor {
	return Descriptor{
		Name:    "newrelic",
		Version: Version,
		Defaults: map[string]interface{}{
			"NEWRELIC_API_KEY":             nil,
			"NEWRELIC_ACCOUNT_ID":          nil,
			"NEWRELIC_NAME":                nil,
			"NEWRELIC_REGION_CODE":         DefaultRegionCode,
			"NEWRELIC_MONITORING_PERIOD":   DefaultMonitoringPeriod,
			"NEWRELIC_MONITORING_LOCATION": DefaultMonitoringLocation,
			"NEWRELIC_SYNTHETICS_MONITORS": []MonitorSpec{},
		},
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	tutornewrelic "github.com/open-craft/tutor-contrib-newrelic"
	"github.com/open-craft/tutor-contrib-newrelic/nerdgraph"
	"github.com/open-craft/tutor-contrib-newrelic/provision"
)

// newCreator builds the client that talks to New Relic. Tests swap it out
// for a stubbed endpoint.
var newCreator = func(conf tutornewrelic.Config) (provision.Creator, error) {
	return nerdgraph.New(conf.APIKey, int(conf.AccountID), conf.RegionCode)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("tutor-newrelic", flag.ContinueOnError)
	flags.SetOutput(stderr)
	configFile := flags.String("f", "", "Path to the host config file. Defaults to $TUTOR_ROOT/config.yml.")
	debug := flags.Bool("debug", false, "Turns on debug messages.")
	flags.Usage = func() { usage(stderr, flags) }
	if err := flags.Parse(args); err != nil {
		return 1
	}

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	switch flags.Arg(0) {
	case "create-alert-workflow":
		if err := createAlertWorkflow(*configFile, stdout); err != nil {
			logrus.WithError(err).Error("provisioning failed")
			return 1
		}
		return 0
	case "config-defaults":
		if err := printConfigDefaults(stdout); err != nil {
			logrus.WithError(err).Error("could not render plugin defaults")
			return 1
		}
		return 0
	case "":
		flags.Usage()
		return 1
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", flags.Arg(0))
		flags.Usage()
		return 1
	}
}

func usage(w io.Writer, flags *flag.FlagSet) {
	fmt.Fprintf(w, "Usage: %s [flags] <command>\n\n", filepath.Base(os.Args[0]))
	fmt.Fprint(w, "Commands:\n")
	fmt.Fprint(w, "  create-alert-workflow  Create the New Relic alerting resources for the instance.\n")
	fmt.Fprint(w, "  config-defaults        Print the configuration keys this plugin recognizes and their defaults.\n\n")
	fmt.Fprint(w, "Flags:\n")
	flags.PrintDefaults()
}

// configPath resolves the host config file: explicit flag first, then the
// host root directory, then the working directory.
func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if root := os.Getenv("TUTOR_ROOT"); root != "" {
		return filepath.Join(root, "config.yml")
	}
	return "config.yml"
}

func createAlertWorkflow(configFile string, stdout io.Writer) error {
	path := configPath(configFile)
	conf, err := tutornewrelic.ReadConfig(path)
	if err != nil {
		logrus.WithField("path", path).Error("could not load configuration")
		return err
	}

	client, err := newCreator(conf)
	if err != nil {
		logrus.Error("could not build New Relic client")
		return err
	}

	label := conf.InstanceLabel()
	fmt.Fprintf(stdout, "Setting up New Relic monitoring for %s\n", label)

	result, err := provision.New(client, conf, logrus.StandardLogger()).Provision(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "policy:       %s\n", result.PolicyID)
	fmt.Fprintf(stdout, "monitors:     %s\n", strings.Join(result.MonitorIDs, ", "))
	fmt.Fprintf(stdout, "conditions:   %s\n", strings.Join(result.ConditionIDs, ", "))
	fmt.Fprintf(stdout, "destinations: %s\n", strings.Join(result.DestinationIDs, ", "))
	fmt.Fprintf(stdout, "channels:     %s\n", strings.Join(result.ChannelIDs, ", "))
	fmt.Fprintf(stdout, "workflow:     %s\n", result.WorkflowID)
	fmt.Fprintf(stdout, "New Relic monitoring is set up for %s\n", label)
	return nil
}

func printConfigDefaults(stdout io.Writer) error {
	out, err := yaml.Marshal(tutornewrelic.Describe())
	if err != nil {
		return err
	}
	_, err = stdout.Write(out)
	return err
}

// Package provision creates the full alerting resource graph for one
// instance on the vendor platform: alert policy, synthetics monitors with
// their lost-signal conditions, notification destinations and channels,
// and the workflow binding them together.
//
// Creation is strictly sequential because every child resource references
// a vendor-assigned id from an earlier step. There is no rollback and no
// reconciliation: a failed run leaves already-created resources in place
// and reports them for manual cleanup.
package provision

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	tutornewrelic "github.com/open-craft/tutor-contrib-newrelic"
)

// Creator is the subset of the NerdGraph client used during provisioning.
type Creator interface {
	CreateAlertPolicy(ctx context.Context, name string) (string, error)
	CreateSyntheticsMonitor(ctx context.Context, name, url, period string, locations []string) (string, error)
	CreateAlertCondition(ctx context.Context, policyID, monitorName string) (string, error)
	CreateNotificationDestination(ctx context.Context, name, recipient string) (string, error)
	CreateNotificationChannel(ctx context.Context, name, destinationID string) (string, error)
	CreateAlertWorkflow(ctx context.Context, name, filterName, policyID string, channelIDs []string) (string, error)
}

// Provisioner runs the one-shot creation sequence against a single
// account. The configuration is validated before it gets here.
type Provisioner struct {
	client Creator
	config tutornewrelic.Config
	log    *logrus.Logger
}

// New returns a Provisioner for the given validated configuration.
func New(client Creator, config tutornewrelic.Config, log *logrus.Logger) *Provisioner {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Provisioner{client: client, config: config, log: log}
}

// Provision creates the resource graph in dependency order and returns
// the ids the vendor assigned. The first failed call aborts the run; if
// anything was already created the failure is wrapped in a PartialError
// listing it.
func (p *Provisioner) Provision(ctx context.Context) (*Result, error) {
	label := p.config.InstanceLabel()
	result := &Result{}
	var created []Resource

	fail := func(err error) (*Result, error) {
		if len(created) == 0 {
			return nil, err
		}
		return nil, &PartialError{Created: created, Err: err}
	}

	name := policyName(label)
	policyID, err := p.client.CreateAlertPolicy(ctx, name)
	if err != nil {
		return fail(err)
	}
	created = append(created, Resource{Kind: "alert policy", Name: name, ID: policyID})
	result.PolicyID = policyID
	p.log.WithFields(logrus.Fields{"policy": name, "id": policyID}).Info("created alert policy")

	for _, spec := range p.config.Monitors {
		for _, url := range spec.URLs {
			monitorID, err := p.client.CreateSyntheticsMonitor(
				ctx, url, url, p.config.MonitoringPeriod, []string{p.config.MonitoringLocation})
			if err != nil {
				return fail(err)
			}
			created = append(created, Resource{Kind: "synthetics monitor", Name: url, ID: monitorID})
			result.MonitorIDs = append(result.MonitorIDs, monitorID)
			p.log.WithFields(logrus.Fields{"url": url, "id": monitorID}).Info("created synthetics monitor")

			conditionID, err := p.client.CreateAlertCondition(ctx, policyID, url)
			if err != nil {
				return fail(err)
			}
			created = append(created, Resource{Kind: "alert condition", Name: conditionName(url), ID: conditionID})
			result.ConditionIDs = append(result.ConditionIDs, conditionID)
			p.log.WithFields(logrus.Fields{"monitor": url, "id": conditionID}).Info("created alert condition")
		}
	}

	chName := channelName(label)
	for _, recipient := range distinctRecipients(p.config.Monitors) {
		destinationID, err := p.client.CreateNotificationDestination(ctx, chName, recipient)
		if err != nil {
			return fail(err)
		}
		created = append(created, Resource{Kind: "notification destination", Name: chName, ID: destinationID})
		result.DestinationIDs = append(result.DestinationIDs, destinationID)
		p.log.WithFields(logrus.Fields{"recipient": recipient, "id": destinationID}).Info("created notification destination")

		channelID, err := p.client.CreateNotificationChannel(ctx, chName, destinationID)
		if err != nil {
			return fail(err)
		}
		created = append(created, Resource{Kind: "notification channel", Name: chName, ID: channelID})
		result.ChannelIDs = append(result.ChannelIDs, channelID)
		p.log.WithFields(logrus.Fields{"recipient": recipient, "id": channelID}).Info("created notification channel")
	}

	wfName := workflowName(label)
	workflowID, err := p.client.CreateAlertWorkflow(ctx, wfName, workflowFilterName(label), policyID, result.ChannelIDs)
	if err != nil {
		return fail(err)
	}
	result.WorkflowID = workflowID
	p.log.WithFields(logrus.Fields{"workflow": wfName, "id": workflowID}).Info("created alert workflow")

	return result, nil
}

// distinctRecipients returns every recipient once, in first-occurrence
// order. Distinctness is exact string match.
func distinctRecipients(specs []tutornewrelic.MonitorSpec) []string {
	seen := make(map[string]bool, len(specs))
	var out []string
	for _, spec := range specs {
		if seen[spec.Recipient] {
			continue
		}
		seen[spec.Recipient] = true
		out = append(out, spec.Recipient)
	}
	return out
}

// Resource names on the vendor platform are derived deterministically from
// the instance label so re-runs produce recognizable duplicates.

func policyName(label string) string {
	return fmt.Sprintf("%s - Open edX Instance", titleCase(label))
}

func channelName(label string) string {
	return fmt.Sprintf("Default notification channel for %s", label)
}

func workflowName(label string) string {
	return fmt.Sprintf("Alert intelligence workflow of %s instance", label)
}

func workflowFilterName(label string) string {
	return fmt.Sprintf("matching issues of %s instance", label)
}

func conditionName(monitorName string) string {
	return fmt.Sprintf("Lost signal for %s", monitorName)
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		r, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(r)) + word[size:]
	}
	return strings.Join(words, " ")
}

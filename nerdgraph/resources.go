package nerdgraph

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"
)

// CreateAlertPolicy creates a per-condition alert policy and returns its
// vendor-assigned id.
func (c *Client) CreateAlertPolicy(ctx context.Context, name string) (string, error) {
	const mutation = `
	mutation($accountId: Int!, $name: String!) {
	  alertsPolicyCreate(
	    accountId: $accountId
	    policy: { name: $name, incidentPreference: PER_CONDITION }
	  ) {
	    id
	    name
	  }
	}`

	var payload struct {
		Result struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"alertsPolicyCreate"`
	}
	err := c.do(ctx, mutation, map[string]interface{}{
		"accountId": c.accountID,
		"name":      name,
	}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Result.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "alertsPolicyCreate returned no policy id"}
	}

	c.log.WithFields(logrus.Fields{"name": name, "id": payload.Result.ID}).Debug("created alert policy")
	return payload.Result.ID, nil
}

// CreateSyntheticsMonitor creates an enabled simple (ping) monitor for the
// given URL and returns its guid.
func (c *Client) CreateSyntheticsMonitor(ctx context.Context, name, url, period string, locations []string) (string, error) {
	const mutation = `
	mutation($accountId: Int!, $monitor: SyntheticsCreateSimpleMonitorInput!) {
	  syntheticsCreateSimpleMonitor(accountId: $accountId, monitor: $monitor) {
	    monitor {
	      id
	      name
	    }
	    errors {
	      description
	      type
	    }
	  }
	}`

	var payload struct {
		Result struct {
			Monitor struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"monitor"`
			Errors []mutationError `json:"errors"`
		} `json:"syntheticsCreateSimpleMonitor"`
	}
	err := c.do(ctx, mutation, map[string]interface{}{
		"accountId": c.accountID,
		"monitor": map[string]interface{}{
			"name":      name,
			"period":    period,
			"uri":       url,
			"status":    "ENABLED",
			"locations": map[string]interface{}{"public": locations},
		},
	}, &payload)
	if err != nil {
		return "", err
	}
	if err := c.mutationFailed("syntheticsCreateSimpleMonitor", payload.Result.Errors); err != nil {
		return "", err
	}
	if payload.Result.Monitor.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "syntheticsCreateSimpleMonitor returned no monitor id"}
	}

	c.log.WithFields(logrus.Fields{"url": url, "id": payload.Result.Monitor.ID}).Debug("created synthetics monitor")
	return payload.Result.Monitor.ID, nil
}

// CreateAlertCondition creates the static NRQL condition that fires when
// the named monitor stops reporting successful checks. The condition is
// attached to the given policy.
func (c *Client) CreateAlertCondition(ctx context.Context, policyID, monitorName string) (string, error) {
	const mutation = `
	mutation($accountId: Int!, $policyId: ID!, $condition: AlertsNrqlConditionStaticInput!) {
	  alertsNrqlConditionStaticCreate(
	    accountId: $accountId
	    policyId: $policyId
	    condition: $condition
	  ) {
	    id
	    name
	  }
	}`

	condition := map[string]interface{}{
		"name":                      fmt.Sprintf("Lost signal for %s", monitorName),
		"enabled":                   true,
		"description":               fmt.Sprintf("Alert when %s is not responding", monitorName),
		"valueFunction":             "SUM",
		"violationTimeLimitSeconds": 86400,
		"nrql": map[string]interface{}{
			"query": fmt.Sprintf(
				"SELECT count(*) FROM SyntheticCheck WHERE monitorName = '%s' AND result = 'FAILED'",
				monitorName,
			),
		},
		"signal": map[string]interface{}{
			"aggregationWindow": 60,
			"aggregationMethod": "EVENT_FLOW",
			"aggregationDelay":  120,
			"fillOption":        "STATIC",
			"fillValue":         0,
		},
		"terms": []map[string]interface{}{
			{
				"threshold":            1,
				"thresholdOccurrences": "AT_LEAST_ONCE",
				"thresholdDuration":    360,
				"operator":             "ABOVE",
				"priority":             "WARNING",
			},
			{
				"threshold":            2,
				"thresholdOccurrences": "AT_LEAST_ONCE",
				"thresholdDuration":    660,
				"operator":             "ABOVE",
				"priority":             "CRITICAL",
			},
		},
		"expiration": map[string]interface{}{
			"expirationDuration":          660,
			"openViolationOnExpiration":   false,
			"closeViolationsOnExpiration": true,
		},
	}

	var payload struct {
		Result struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"alertsNrqlConditionStaticCreate"`
	}
	err := c.do(ctx, mutation, map[string]interface{}{
		"accountId": c.accountID,
		"policyId":  policyID,
		"condition": condition,
	}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Result.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "alertsNrqlConditionStaticCreate returned no condition id"}
	}

	c.log.WithFields(logrus.Fields{"monitor": monitorName, "id": payload.Result.ID}).Debug("created alert condition")
	return payload.Result.ID, nil
}

// CreateNotificationDestination creates an email destination for the given
// recipient and returns its id.
func (c *Client) CreateNotificationDestination(ctx context.Context, name, recipient string) (string, error) {
	const mutation = `
	mutation($accountId: Int!, $name: String!, $recipient: String!) {
	  aiNotificationsCreateDestination(
	    accountId: $accountId
	    destination: {
	      name: $name
	      type: EMAIL
	      properties: { key: "email", value: $recipient }
	    }
	  ) {
	    destination {
	      id
	      name
	    }
	    error {
	      __typename
	    }
	  }
	}`

	var payload struct {
		Result struct {
			Destination struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"destination"`
			Error *struct {
				TypeName string `json:"__typename"`
			} `json:"error"`
		} `json:"aiNotificationsCreateDestination"`
	}
	err := c.do(ctx, mutation, map[string]interface{}{
		"accountId": c.accountID,
		"name":      name,
		"recipient": recipient,
	}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Result.Error != nil {
		return "", &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("aiNotificationsCreateDestination: %s", payload.Result.Error.TypeName),
		}
	}
	if payload.Result.Destination.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "aiNotificationsCreateDestination returned no destination id"}
	}

	c.log.WithFields(logrus.Fields{"recipient": recipient, "id": payload.Result.Destination.ID}).Debug("created notification destination")
	return payload.Result.Destination.ID, nil
}

// CreateNotificationChannel creates an email channel backed by an existing
// destination and returns its id.
func (c *Client) CreateNotificationChannel(ctx context.Context, name, destinationID string) (string, error) {
	const mutation = `
	mutation($accountId: Int!, $name: String!, $destinationId: ID!) {
	  aiNotificationsCreateChannel(
	    accountId: $accountId
	    channel: {
	      type: EMAIL
	      name: $name
	      destinationId: $destinationId
	      product: IINT
	      properties: []
	    }
	  ) {
	    channel {
	      id
	      name
	    }
	    error {
	      __typename
	    }
	  }
	}`

	var payload struct {
		Result struct {
			Channel struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"channel"`
			Error *struct {
				TypeName string `json:"__typename"`
			} `json:"error"`
		} `json:"aiNotificationsCreateChannel"`
	}
	err := c.do(ctx, mutation, map[string]interface{}{
		"accountId":     c.accountID,
		"name":          name,
		"destinationId": destinationID,
	}, &payload)
	if err != nil {
		return "", err
	}
	if payload.Result.Error != nil {
		return "", &APIError{
			StatusCode: http.StatusOK,
			Message:    fmt.Sprintf("aiNotificationsCreateChannel: %s", payload.Result.Error.TypeName),
		}
	}
	if payload.Result.Channel.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "aiNotificationsCreateChannel returned no channel id"}
	}

	c.log.WithFields(logrus.Fields{"destination": destinationID, "id": payload.Result.Channel.ID}).Debug("created notification channel")
	return payload.Result.Channel.ID, nil
}

// CreateAlertWorkflow creates the workflow that routes issues from the
// given policy to the given channels and returns its id. filterName labels
// the issues filter that scopes the workflow to the policy.
func (c *Client) CreateAlertWorkflow(ctx context.Context, name, filterName, policyID string, channelIDs []string) (string, error) {
	const mutation = `
	mutation($accountId: Int!, $name: String!, $filterName: String!, $policyIds: [String!]!, $configurations: [AiWorkflowsDestinationConfigurationInput!]!) {
	  aiWorkflowsCreateWorkflow(
	    accountId: $accountId
	    createWorkflowData: {
	      name: $name
	      workflowEnabled: true
	      destinationsEnabled: true
	      mutingRulesHandling: NOTIFY_ALL_ISSUES
	      issuesFilter: {
	        name: $filterName
	        type: FILTER
	        predicates: [
	          {
	            attribute: "labels.policyIds"
	            operator: EXACTLY_MATCHES
	            values: $policyIds
	          }
	        ]
	      }
	      destinationConfigurations: $configurations
	    }
	  ) {
	    workflow {
	      id
	      name
	    }
	    errors {
	      description
	      type
	    }
	  }
	}`

	configurations := make([]map[string]interface{}, len(channelIDs))
	for i, channelID := range channelIDs {
		configurations[i] = map[string]interface{}{
			"channelId":            channelID,
			"notificationTriggers": []string{"ACTIVATED", "CLOSED"},
		}
	}

	var payload struct {
		Result struct {
			Workflow *struct {
				ID   string `json:"id"`
				Name string `json:"name"`
			} `json:"workflow"`
			Errors []mutationError `json:"errors"`
		} `json:"aiWorkflowsCreateWorkflow"`
	}
	err := c.do(ctx, mutation, map[string]interface{}{
		"accountId":      c.accountID,
		"name":           name,
		"filterName":     filterName,
		"policyIds":      []string{policyID},
		"configurations": configurations,
	}, &payload)
	if err != nil {
		return "", err
	}
	if err := c.mutationFailed("aiWorkflowsCreateWorkflow", payload.Result.Errors); err != nil {
		return "", err
	}
	if payload.Result.Workflow == nil || payload.Result.Workflow.ID == "" {
		return "", &APIError{StatusCode: http.StatusOK, Message: "aiWorkflowsCreateWorkflow returned no workflow id"}
	}

	c.log.WithFields(logrus.Fields{"policy": policyID, "id": payload.Result.Workflow.ID}).Debug("created alert workflow")
	return payload.Result.Workflow.ID, nil
}

package nerdgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey    = "NRAK-TEST"
	testAccountID = 1234567
)

// newTestClient wires a Client to an httptest server that records every
// GraphQL request before answering with the given handler.
func newTestClient(t *testing.T, handler func(w http.ResponseWriter, req graphQLRequest)) *Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, testAPIKey, r.Header.Get("Api-Key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req)
	}))
	t.Cleanup(srv.Close)

	client, err := New(testAPIKey, testAccountID, "US", WithEndpoint(srv.URL))
	require.NoError(t, err)
	return client
}

func respond(w http.ResponseWriter, data string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":%s}`, data)
}

func TestNewResolvesRegionEndpoint(t *testing.T) {
	t.Parallel()

	us, err := New(testAPIKey, testAccountID, "US")
	require.NoError(t, err)
	assert.Equal(t, "https://api.newrelic.com/graphql", us.endpoint)

	eu, err := New(testAPIKey, testAccountID, "EU")
	require.NoError(t, err)
	assert.Equal(t, "https://api.eu.newrelic.com/graphql", eu.endpoint)
}

func TestNewRejectsUnknownRegion(t *testing.T) {
	t.Parallel()

	_, err := New(testAPIKey, testAccountID, "FR")
	assert.Error(t, err)
}

func TestCreateAlertPolicy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "alertsPolicyCreate")
		assert.EqualValues(t, testAccountID, req.Variables["accountId"])
		assert.Equal(t, "Demo - Open edX Instance", req.Variables["name"])
		respond(w, `{"alertsPolicyCreate":{"id":"111","name":"Demo - Open edX Instance"}}`)
	})

	id, err := client.CreateAlertPolicy(context.Background(), "Demo - Open edX Instance")
	require.NoError(t, err)
	assert.Equal(t, "111", id)
}

func TestCreateAlertPolicyServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.CreateAlertPolicy(context.Background(), "Demo")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok, "expected an APIError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "boom")
}

func TestCreateAlertPolicyGraphQLError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		fmt.Fprint(w, `{"errors":[{"message":"invalid api key"}]}`)
	})

	_, err := client.CreateAlertPolicy(context.Background(), "Demo")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "invalid api key")
}

func TestCreateAlertPolicyMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		fmt.Fprint(w, `this is not json`)
	})

	_, err := client.CreateAlertPolicy(context.Background(), "Demo")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "malformed response body")
}

func TestCreateSyntheticsMonitor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "syntheticsCreateSimpleMonitor")

		monitor := req.Variables["monitor"].(map[string]interface{})
		assert.Equal(t, "https://lms.example.com/heartbeat", monitor["uri"])
		assert.Equal(t, "EVERY_5_MINUTES", monitor["period"])
		assert.Equal(t, "ENABLED", monitor["status"])

		respond(w, `{"syntheticsCreateSimpleMonitor":{"monitor":{"id":"m-1","name":"https://lms.example.com/heartbeat"},"errors":[]}}`)
	})

	id, err := client.CreateSyntheticsMonitor(context.Background(),
		"https://lms.example.com/heartbeat", "https://lms.example.com/heartbeat",
		"EVERY_5_MINUTES", []string{"AWS_US_EAST_1"})
	require.NoError(t, err)
	assert.Equal(t, "m-1", id)
}

func TestCreateSyntheticsMonitorEmbeddedErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		respond(w, `{"syntheticsCreateSimpleMonitor":{"monitor":null,"errors":[{"description":"location not allowed","type":"BAD_REQUEST"}]}}`)
	})

	_, err := client.CreateSyntheticsMonitor(context.Background(),
		"u", "u", "EVERY_5_MINUTES", []string{"NOWHERE"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "location not allowed")
}

func TestCreateAlertCondition(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "alertsNrqlConditionStaticCreate")
		assert.Equal(t, "p-1", req.Variables["policyId"])

		condition := req.Variables["condition"].(map[string]interface{})
		assert.Equal(t, "Lost signal for https://lms.example.com/heartbeat", condition["name"])
		nrql := condition["nrql"].(map[string]interface{})
		assert.Contains(t, nrql["query"], "SyntheticCheck")

		respond(w, `{"alertsNrqlConditionStaticCreate":{"id":"c-1","name":"Lost signal for https://lms.example.com/heartbeat"}}`)
	})

	id, err := client.CreateAlertCondition(context.Background(), "p-1", "https://lms.example.com/heartbeat")
	require.NoError(t, err)
	assert.Equal(t, "c-1", id)
}

func TestCreateNotificationDestination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "aiNotificationsCreateDestination")
		assert.Equal(t, "ops@example.com", req.Variables["recipient"])
		respond(w, `{"aiNotificationsCreateDestination":{"destination":{"id":"d-1","name":"dst"},"error":null}}`)
	})

	id, err := client.CreateNotificationDestination(context.Background(), "dst", "ops@example.com")
	require.NoError(t, err)
	assert.Equal(t, "d-1", id)
}

func TestCreateNotificationDestinationError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		respond(w, `{"aiNotificationsCreateDestination":{"destination":null,"error":{"__typename":"AiNotificationsConstraintsError"}}}`)
	})

	_, err := client.CreateNotificationDestination(context.Background(), "dst", "ops@example.com")
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "AiNotificationsConstraintsError")
}

func TestCreateNotificationChannel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "aiNotificationsCreateChannel")
		assert.Equal(t, "d-1", req.Variables["destinationId"])
		respond(w, `{"aiNotificationsCreateChannel":{"channel":{"id":"ch-1","name":"chan"},"error":null}}`)
	})

	id, err := client.CreateNotificationChannel(context.Background(), "chan", "d-1")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", id)
}

func TestCreateAlertWorkflow(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		assert.Contains(t, req.Query, "aiWorkflowsCreateWorkflow")
		assert.Equal(t, []interface{}{"p-1"}, req.Variables["policyIds"])
		assert.Equal(t, "matching issues of demo instance", req.Variables["filterName"])

		configurations := req.Variables["configurations"].([]interface{})
		require.Len(t, configurations, 2)
		first := configurations[0].(map[string]interface{})
		assert.Equal(t, "ch-1", first["channelId"])

		respond(w, `{"aiWorkflowsCreateWorkflow":{"workflow":{"id":"w-1","name":"wf"},"errors":[]}}`)
	})

	id, err := client.CreateAlertWorkflow(context.Background(), "wf", "matching issues of demo instance", "p-1", []string{"ch-1", "ch-2"})
	require.NoError(t, err)
	assert.Equal(t, "w-1", id)
}

func TestCreateAlertWorkflowNilWorkflow(t *testing.T) {
	// The vendor answers with a null workflow and no errors when a workflow
	// with the same name already exists.
	client := newTestClient(t, func(w http.ResponseWriter, req graphQLRequest) {
		respond(w, `{"aiWorkflowsCreateWorkflow":{"workflow":null,"errors":[]}}`)
	})

	_, err := client.CreateAlertWorkflow(context.Background(), "wf", "matching issues of demo instance", "p-1", []string{"ch-1"})
	require.Error(t, err)

	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Contains(t, apiErr.Message, "no workflow id")
}

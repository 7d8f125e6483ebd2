package provision

import (
	"fmt"
	"strings"
)

// Result holds the vendor-assigned ids of every resource a successful run
// created. The plugin keeps no other record; the vendor platform is the
// store of record.
type Result struct {
	PolicyID       string
	MonitorIDs     []string
	ConditionIDs   []string
	DestinationIDs []string
	ChannelIDs     []string
	WorkflowID     string
}

// Resource identifies one object created on the vendor platform.
type Resource struct {
	Kind string
	Name string
	ID   string
}

func (r Resource) String() string {
	return fmt.Sprintf("%s %q (id %s)", r.Kind, r.Name, r.ID)
}

// PartialError reports a run that failed after some resources were already
// created. Nothing is rolled back; the listed resources remain on the
// vendor platform and cleanup is the operator's job.
type PartialError struct {
	Created []Resource
	Err     error
}

func (e *PartialError) Error() string {
	names := make([]string, len(e.Created))
	for i, r := range e.Created {
		names[i] = r.String()
	}
	return fmt.Sprintf("provisioning aborted after %d resources were created: %v; already created: %s",
		len(e.Created), e.Err, strings.Join(names, ", "))
}

func (e *PartialError) Unwrap() error { return e.Err }

package ports

import "github.com/ghalamif/TagSync/internal/domain"

// TagCollector produces tags from a source other than the TCP tagging server
// (OPC UA triggers, simulators, etc.).
type TagCollector interface {
	Start(out chan<- domain.Tag) error
	Stop() error
}

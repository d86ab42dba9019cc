package ports

import "github.com/ghalamif/TagSync/internal/domain"

type Sink interface {
	WriteBatch(events []domain.Event) error
	Name() string
}

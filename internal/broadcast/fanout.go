package broadcast

import (
	"errors"

	"timestick/internal/model"
)

// Sink is anything that accepts published reports.
type Sink interface {
	Publish(r model.Report) error
}

// Fanout publishes to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Publish(r model.Report) error {
	var errs []error
	for _, s := range f {
		if s == nil {
			continue
		}
		if err := s.Publish(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package writer

import (
	"context"
	"errors"
)

type BatchWriter[T any] interface {
	BWrite(ctx context.Context, batch []T) error
	Close() error
}

// Multi 同一批数据写入多个目标，互不影响
type Multi[T any] struct {
	writers []BatchWriter[T]
}

func NewMulti[T any](writers ...BatchWriter[T]) *Multi[T] {
	return &Multi[T]{writers: writers}
}

func (m *Multi[T]) Len() int {
	return len(m.writers)
}

func (m *Multi[T]) BWrite(ctx context.Context, batch []T) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.BWrite(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi[T]) Close() error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

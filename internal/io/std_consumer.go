package io

import (
	"sync"

	"github.com/golang/glog"

	"github.com/ecopia-map/las_merger/internal/data"
)

// Point sink of the consumer, implemented by LasWriter
type PointWriter interface {
	WritePoint(p *data.Point) error
}

type StandardConsumer struct {
	writer  PointWriter
	written uint64
}

func NewStandardConsumer(writer PointWriter) *StandardConsumer {
	return &StandardConsumer{
		writer: writer,
	}
}

// Number of points written so far
func (c *StandardConsumer) GetWritten() uint64 {
	return c.written
}

// Continually consumes WorkUnits submitted to a work channel writing their points in order.
// Continues working until the work channel is closed or an error is raised. In this last case
// submits the error to an error channel and closes done so the producer stops.
func (c *StandardConsumer) Consume(workchan chan *WorkUnit, done chan struct{}, errchan chan error, waitGroup *sync.WaitGroup) {
	defer waitGroup.Done()

	for work := range workchan {
		if err := c.doWork(work); err != nil {
			errchan <- err
			glog.Errorf("consumer stopped at batch %d: %v", work.Sequence, err)
			close(done)
			return
		}
	}
}

func (c *StandardConsumer) doWork(workUnit *WorkUnit) error {
	for _, p := range workUnit.Points {
		if err := c.writer.WritePoint(p); err != nil {
			return err
		}
		c.written++
	}
	return nil
}

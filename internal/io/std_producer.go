package io

import (
	"io"
	"sync"

	"github.com/ecopia-map/las_merger/internal/data"
)

const DefaultBatchSize = 4096

type StandardProducer struct {
	reader    Reader
	batchSize int
}

func NewStandardProducer(reader Reader, batchSize int) *StandardProducer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &StandardProducer{
		reader:    reader,
		batchSize: batchSize,
	}
}

// Reads the whole stream and submits it as WorkUnits of at most batchSize points to the work
// channel. Closes the channel when all work is submitted, when done is closed or when a read
// fails, in this last case the error is sent to the error channel.
func (p *StandardProducer) Produce(work chan *WorkUnit, done <-chan struct{}, errchan chan error, wg *sync.WaitGroup) {
	defer wg.Done()
	defer close(work)

	unit := p.newUnit(0)
	for {
		err := p.reader.ReadPoint()
		if err == io.EOF {
			break
		}
		if err != nil {
			errchan <- err
			return
		}
		unit.Points = append(unit.Points, p.reader.GetPoint().Clone())
		if len(unit.Points) == p.batchSize {
			if !submit(work, done, unit) {
				return
			}
			unit = p.newUnit(unit.Sequence + 1)
		}
	}
	if len(unit.Points) > 0 {
		submit(work, done, unit)
	}
}

func submit(work chan *WorkUnit, done <-chan struct{}, unit *WorkUnit) bool {
	select {
	case work <- unit:
		return true
	case <-done:
		return false
	}
}

func (p *StandardProducer) newUnit(sequence int) *WorkUnit {
	return &WorkUnit{Sequence: sequence, Points: make([]*data.Point, 0, p.batchSize)}
}

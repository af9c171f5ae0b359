package io

import (
	"sync"
)

// The consumer closes done when it stops early, the producer then stops reading
type Producer interface {
	Produce(work chan *WorkUnit, done <-chan struct{}, errchan chan error, wg *sync.WaitGroup)
}

type Consumer interface {
	Consume(work chan *WorkUnit, done chan struct{}, errchan chan error, wg *sync.WaitGroup)
}

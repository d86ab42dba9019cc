package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/TagSync/internal/domain"
)

// Loop is driven once per acquisition block with the date of the newest
// sample.
type Loop interface {
	OnLoop(sampleTime domain.Time) domain.StimulationSet
}

// BlockClock stands in for an amplifier driver: it advances a sample counter
// by blockSize every blockSize/rate seconds and runs the loop on each block.
type BlockClock struct {
	rate      uint32
	blockSize uint32
	samples   uint64
}

func NewBlockClock(rate, blockSize uint32) *BlockClock {
	return &BlockClock{rate: rate, blockSize: blockSize}
}

// Period is the wall-clock length of one block.
func (b *BlockClock) Period() time.Duration {
	if b.rate == 0 {
		return 0
	}
	return time.Duration(b.blockSize) * time.Second / time.Duration(b.rate)
}

// Next advances by one block and returns the sample time at its end.
func (b *BlockClock) Next() domain.Time {
	b.samples += uint64(b.blockSize)
	return domain.SamplesToTime(b.samples, b.rate)
}

// Samples returns the number of samples acquired so far.
func (b *BlockClock) Samples() uint64 { return b.samples }

// Run ticks until ctx is done.
func (b *BlockClock) Run(ctx context.Context, loop Loop) error {
	period := b.Period()
	if period <= 0 {
		period = time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			loop.OnLoop(b.Next())
		}
	}
}

package session

import (
	"time"

	"github.com/google/uuid"
)

// Clock creates tickers
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers periodic ticks until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// IDGenerator generates session IDs
type IDGenerator interface {
	Generate() string
}

// defaultClock creates real tickers
type defaultClock struct{}

func (defaultClock) NewTicker(d time.Duration) Ticker {
	return &timeTicker{ticker: time.NewTicker(d)}
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t *timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t *timeTicker) Stop() {
	t.ticker.Stop()
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

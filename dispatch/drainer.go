package dispatch

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Drainer runs the outbox drain out-of-band: a kick channel gives transitions
// a near-immediate fan-out without making the triggering request wait, and a
// cron sweep retries anything an earlier pass left pending.
type Drainer struct {
	dispatcher *Dispatcher
	cron       *cron.Cron
	kick       chan struct{}
	stop       chan struct{}
}

// NewDrainer creates a drainer over the given dispatcher
func NewDrainer(dispatcher *Dispatcher) *Drainer {
	return &Drainer{
		dispatcher: dispatcher,
		cron:       cron.New(cron.WithLocation(time.UTC)),
		kick:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
	}
}

// Start begins the kick loop and the retry sweep
func (dr *Drainer) Start() {
	_, err := dr.cron.AddFunc("@every 1m", dr.sweep)
	if err != nil {
		zap.S().Errorw("failed to register outbox sweep job", "error", err)
	}
	dr.cron.Start()

	go func() {
		for {
			select {
			case <-dr.kick:
				dr.sweep()
			case <-dr.stop:
				return
			}
		}
	}()
	zap.S().Info("outbox drainer started")
}

// Stop gracefully stops the drainer
func (dr *Drainer) Stop() {
	ctx := dr.cron.Stop()
	<-ctx.Done()
	close(dr.stop)
	zap.S().Info("outbox drainer stopped")
}

// Kick requests a drain pass without blocking the caller. A pass already
// queued absorbs the kick.
func (dr *Drainer) Kick() {
	select {
	case dr.kick <- struct{}{}:
	default:
	}
}

func (dr *Drainer) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	dr.dispatcher.Drain(ctx)
}

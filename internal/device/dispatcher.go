package device

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/duolight/internal/reconcile"
)

// Default configuration
const (
	DefaultQueueSize    = 64
	DefaultRateLimitRPS = 10.0
	DefaultTimeout      = 5 * time.Second
)

// job is one queued unit of work: a full reconciler plan or an identify request.
type job struct {
	plan     []reconcile.Command
	identify bool
}

// Dispatcher implements reconcile.Commander on top of a Driver.
// Plans are queued whole and executed in order by a single worker, so the
// reconciler never blocks on the network. When the queue is full the new
// plan is dropped entirely; a plan is never split. Command failures are
// logged and the rest of the plan still runs.
type Dispatcher struct {
	driver  Driver
	limiter *rate.Limiter
	timeout time.Duration
	queue   chan job

	mu      sync.RWMutex
	closed  bool
	started bool
	abort   context.CancelFunc
	done    chan struct{}
}

// NewDispatcher creates a dispatcher. queueSize counts plans. Zero values select defaults.
func NewDispatcher(driver Driver, queueSize int, rateLimitRPS float64, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if rateLimitRPS <= 0 {
		rateLimitRPS = DefaultRateLimitRPS
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	burst := int(rateLimitRPS)
	if burst < 1 {
		burst = 1
	}

	return &Dispatcher{
		driver:  driver,
		limiter: rate.NewLimiter(rate.Limit(rateLimitRPS), burst),
		timeout: timeout,
		queue:   make(chan job, queueSize),
		done:    make(chan struct{}),
	}
}

// SendPlan queues a whole reconciler plan.
func (d *Dispatcher) SendPlan(cmds []reconcile.Command) {
	if len(cmds) == 0 {
		return
	}
	plan := make([]reconcile.Command, len(cmds))
	copy(plan, cmds)
	d.enqueue(job{plan: plan})
}

func (d *Dispatcher) SetPower(on bool, colorChannel bool) {
	d.SendPlan([]reconcile.Command{reconcile.Power(channel(colorChannel), on)})
}

func (d *Dispatcher) SetBrightness(level int, colorChannel bool) {
	d.SendPlan([]reconcile.Command{reconcile.Brightness(channel(colorChannel), level)})
}

func (d *Dispatcher) SetColorTemperature(value int, colorChannel bool) {
	d.SendPlan([]reconcile.Command{reconcile.ColorTemperature(channel(colorChannel), value)})
}

func (d *Dispatcher) SetHueSaturation(hue, saturation int) {
	d.SendPlan([]reconcile.Command{reconcile.HueSaturation(hue, saturation)})
}

// Identify asks the device to blink, if the driver supports it.
func (d *Dispatcher) Identify() {
	d.enqueue(job{identify: true})
}

func (d *Dispatcher) enqueue(j job) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Warn().Strs("commands", reconcile.Strings(j.plan)).Msg("Dispatcher closed, dropping plan")
		return
	}

	select {
	case d.queue <- j:
	default:
		log.Warn().
			Str("driver", d.driver.Name()).
			Strs("commands", reconcile.Strings(j.plan)).
			Bool("identify", j.identify).
			Msg("Device queue full, dropping plan")
	}
}

// Start launches the worker. It runs until Close has drained the queue.
// Cancelling ctx aborts the worker and drops whatever is still queued.
// Calling Start again, or after Close, does nothing.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true

	ctx, d.abort = context.WithCancel(ctx)
	go d.run(ctx)
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	log.Info().Str("driver", d.driver.Name()).Msg("Device dispatcher started")

	for {
		select {
		case <-ctx.Done():
			log.Warn().Int("pending", len(d.queue)).Msg("Device dispatcher aborted")
			return
		case j, ok := <-d.queue:
			if !ok {
				log.Info().Msg("Device dispatcher drained")
				return
			}
			d.execute(ctx, j)
		}
	}
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	if j.identify {
		d.identify(ctx)
		return
	}

	for i, cmd := range j.plan {
		if err := d.limiter.Wait(ctx); err != nil {
			log.Warn().
				Strs("commands", reconcile.Strings(j.plan[i:])).
				Msg("Device dispatcher aborted mid-plan")
			return
		}
		d.send(ctx, cmd)
	}
}

func (d *Dispatcher) send(ctx context.Context, cmd reconcile.Command) {
	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := Execute(cctx, d.driver, cmd); err != nil {
		log.Error().
			Err(err).
			Str("driver", d.driver.Name()).
			Str("command", cmd.String()).
			Msg("Device command failed")
		return
	}
	log.Debug().Str("driver", d.driver.Name()).Str("command", cmd.String()).Msg("Device command sent")
}

func (d *Dispatcher) identify(ctx context.Context) {
	id, ok := d.driver.(Identifier)
	if !ok {
		log.Debug().Str("driver", d.driver.Name()).Msg("Driver does not support identify")
		return
	}

	cctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := id.Identify(cctx); err != nil {
		log.Error().Err(err).Str("driver", d.driver.Name()).Msg("Device identify failed")
	}
}

// Close stops accepting plans and waits for the worker to execute everything
// already queued. If ctx expires first the worker is aborted and the rest is
// dropped. The driver is closed last.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started, abort := d.started, d.abort
	d.mu.Unlock()

	if !started {
		if n := len(d.queue); n > 0 {
			log.Warn().Int("pending", n).Msg("Device dispatcher never started, pending plans dropped")
		}
		return d.driver.Close()
	}

	select {
	case <-d.done:
	case <-ctx.Done():
		log.Warn().Int("pending", len(d.queue)).Msg("Device dispatcher shutdown timed out, pending plans dropped")
		abort()
		<-d.done
	}
	return d.driver.Close()
}

func channel(colorChannel bool) reconcile.Channel {
	if colorChannel {
		return reconcile.ChannelColor
	}
	return reconcile.ChannelWhite
}

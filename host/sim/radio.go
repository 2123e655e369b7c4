package sim

import (
	"errors"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"sensenode/core"
	"sensenode/protocol"
)

var (
	errRadioNotStarted = errors.New("radio: network not started")
	errRadioPaused     = errors.New("radio: network paused")
)

// RadioConfig tunes the simulated link.
type RadioConfig struct {
	Address      uint32
	LatencyTicks uint32 // Send to TransmitComplete
	FailEvery    int    // reject every Nth Send, 0 never
	LostEvery    int    // accept but never confirm every Nth Send, 0 never
}

type radioContext struct {
	role        core.Role
	tree        core.TreeParams
	initialized bool
	started     bool
	paused      bool
}

// Radio is a NetworkGateway that frames every accepted report onto out and
// confirms it LatencyTicks later.
type Radio struct {
	cfg    RadioConfig
	out    io.Writer
	log    logrus.FieldLogger
	timers *TimerQueue
	clock  *Clock
	post   func(core.Event)

	key     uint32
	keyed   bool
	scratch protocol.ScratchOutput

	attempts  int
	frames    int
	rejected  int
	lost      int
	confirmed int
}

func newRadio(cfg RadioConfig, out io.Writer, log logrus.FieldLogger, timers *TimerQueue, clock *Clock, post func(core.Event)) *Radio {
	if out == nil {
		out = io.Discard
	}
	return &Radio{cfg: cfg, out: out, log: log, timers: timers, clock: clock, post: post}
}

func (r *Radio) Configure(role core.Role, tree core.TreeParams) (core.NetworkContext, error) {
	if tree.AppID == 0 {
		return nil, fmt.Errorf("radio: app id 0")
	}
	return &radioContext{role: role, tree: tree}, nil
}

func (r *Radio) Init(ctx core.NetworkContext) error {
	rc, err := r.context(ctx)
	if err != nil {
		return err
	}
	rc.initialized = true
	return nil
}

func (r *Radio) Start(ctx core.NetworkContext) error {
	rc, err := r.context(ctx)
	if err != nil {
		return err
	}
	if !rc.initialized {
		return errors.New("radio: start before init")
	}
	rc.started = true
	rc.paused = false
	r.log.WithFields(logrus.Fields{
		"app_id":  fmt.Sprintf("0x%08X", rc.tree.AppID),
		"channel": rc.tree.Channel,
	}).Debug("network started")
	return nil
}

func (r *Radio) Pause(ctx core.NetworkContext) error {
	rc, err := r.context(ctx)
	if err != nil {
		return err
	}
	rc.paused = true
	return nil
}

func (r *Radio) Resume(ctx core.NetworkContext) error {
	rc, err := r.context(ctx)
	if err != nil {
		return err
	}
	if !rc.started {
		return errRadioNotStarted
	}
	rc.paused = false
	return nil
}

func (r *Radio) Send(ctx core.NetworkContext, req core.TxRequest) error {
	rc, err := r.context(ctx)
	if err != nil {
		return err
	}
	switch {
	case !rc.started:
		return errRadioNotStarted
	case rc.paused:
		return errRadioPaused
	case req.Secure && !r.keyed:
		return fmt.Errorf("%w: no key registered", core.ErrSendRejected)
	}

	r.attempts++
	if r.cfg.FailEvery > 0 && r.attempts%r.cfg.FailEvery == 0 {
		r.rejected++
		return core.ErrSendRejected
	}

	r.scratch.Reset()
	err = protocol.EncodeFrame(&r.scratch, protocol.Frame{
		Sequence: req.Sequence,
		Src:      req.Src,
		Dst:      req.Dst.Addr(),
		Secure:   req.Secure,
		Payload:  req.Payload,
	})
	if err != nil {
		return err
	}
	if _, err := r.out.Write(r.scratch.Result()); err != nil {
		return fmt.Errorf("radio: %w", err)
	}
	r.frames++

	if r.cfg.LostEvery > 0 && r.attempts%r.cfg.LostEvery == 0 {
		r.lost++
		return nil
	}

	id := req.CallbackID
	t := &Timer{
		WakeTime: r.clock.Ticks() + r.cfg.LatencyTicks,
		Handler: func(*Timer) uint8 {
			r.confirmed++
			r.post(core.TransmitComplete(id, true))
			return TimerDone
		},
	}
	r.timers.Schedule(t)
	return nil
}

func (r *Radio) RegisterKey(key uint32) error {
	r.key = key
	r.keyed = true
	return nil
}

func (r *Radio) Address() uint32 {
	return r.cfg.Address
}

// CalibrateRC keeps a stored trim, otherwise returns a fixed nominal trim.
func (r *Radio) CalibrateRC(stored uint16) uint16 {
	if stored != 0 {
		return stored
	}
	return 0x0200
}

func (r *Radio) context(ctx core.NetworkContext) (*radioContext, error) {
	rc, ok := ctx.(*radioContext)
	if !ok || rc == nil {
		return nil, core.ErrNetworkUnavailable
	}
	return rc, nil
}

// RadioStats counts what went over the simulated air.
type RadioStats struct {
	Attempts  int
	Frames    int
	Rejected  int
	Lost      int
	Confirmed int
}

func (r *Radio) Stats() RadioStats {
	return RadioStats{
		Attempts:  r.attempts,
		Frames:    r.frames,
		Rejected:  r.rejected,
		Lost:      r.lost,
		Confirmed: r.confirmed,
	}
}

var (
	_ core.NetworkGateway = (*Radio)(nil)
	_ core.RCCalibrator   = (*Radio)(nil)
)

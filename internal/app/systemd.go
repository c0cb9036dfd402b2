package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "hwbot/pkg/logx"
)

// unitNotifier speaks the sd_notify protocol. Outside a Type=notify unit
// (no NOTIFY_SOCKET) every call is a no-op.
type unitNotifier struct {
	notify   func(unsetEnvironment bool, state string) (bool, error)
	watchdog func(unsetEnvironment bool) (time.Duration, error)
	log      logx.Logger
}

func newUnitNotifier(log logx.Logger) *unitNotifier {
	return &unitNotifier{notify: daemon.SdNotify, watchdog: daemon.SdWatchdogEnabled, log: log}
}

func (n *unitNotifier) send(state string) {
	ok, err := n.notify(false, state)
	if err != nil {
		n.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if ok {
		n.log.Trace("sd_notify sent", logx.String("state", state))
	}
}

func (n *unitNotifier) Ready()               { n.send(daemon.SdNotifyReady) }
func (n *unitNotifier) Stopping()            { n.send(daemon.SdNotifyStopping) }
func (n *unitNotifier) Status(status string) { n.send("STATUS=" + status) }

// WatchdogLoop pings the watchdog at half the configured interval until ctx
// is done. It returns immediately when the unit has no WatchdogSec.
func (n *unitNotifier) WatchdogLoop(ctx context.Context) {
	every, err := n.watchdog(false)
	if err != nil {
		n.log.Warn("watchdog settings unreadable", logx.Err(err))
		return
	}
	if every <= 0 {
		return
	}
	t := time.NewTicker(every / 2)
	defer t.Stop()
	n.log.Debug("watchdog enabled", logx.Duration("interval", every))
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n.send(daemon.SdNotifyWatchdog)
		}
	}
}

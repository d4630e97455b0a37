package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"scripttimer/internal/app"
	"scripttimer/internal/config"
	"scripttimer/internal/history"
	"scripttimer/internal/logx"
	"scripttimer/internal/notify"
	"scripttimer/internal/scheduler"
)

// runtime wires config, logging and the scheduler for one command.
type runtime struct {
	flags  *rootFlags
	cfgMgr *config.Manager
	cfg    *config.Config
	logSvc *logx.Service
	log    logx.Logger
	sched  *scheduler.Scheduler

	// quiet keeps console logging off so it cannot draw over the TUI.
	quiet bool

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	closers []func()
}

func loadConfig(flags *rootFlags) (*config.Manager, *config.Config, error) {
	path := strings.TrimSpace(flags.configPath)
	if path == "" {
		def, err := config.DefaultPath()
		if err != nil {
			return nil, nil, err
		}
		path = def
	} else {
		normalized, err := app.NormalizePath(path)
		if err != nil {
			return nil, nil, err
		}
		path = normalized
	}

	mgr := config.NewManager(path)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, nil, err
	}
	if flags.logLevel != "" && !logx.ValidLevel(flags.logLevel) {
		return nil, nil, &usageError{err: errors.New("--log-level: unknown level " + flags.logLevel)}
	}
	return mgr, cfg, nil
}

func newRuntime(flags *rootFlags, launcher scheduler.Launcher, quiet bool) (*runtime, error) {
	mgr, cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	rt := &runtime{flags: flags, cfgMgr: mgr, cfg: cfg, quiet: quiet}
	rt.logSvc, rt.log = logx.New(rt.logConfig(cfg))
	mgr.SetLogger(rt.log)

	rt.sched = scheduler.New(scheduler.Options{
		Launcher:  launcher,
		Logger:    rt.log,
		KillGrace: cfg.KillGrace(),
	})
	rt.log.Debug("config loaded", logx.String("path", mgr.Path()))
	return rt, nil
}

func (rt *runtime) logConfig(cfg *config.Config) logx.Config {
	lc := cfg.LogxConfig()
	if rt.flags.logLevel != "" {
		lc.Level = rt.flags.logLevel
	}
	if rt.quiet {
		lc.Console = false
	}
	if lc.File.Enabled && strings.TrimSpace(lc.File.Path) == "" {
		if dir, err := app.StateDir(); err == nil {
			lc.File.Path = filepath.Join(dir, "scripttimer.log")
		}
	}
	return lc
}

// policyDefaults fills policy fields the command line left to the config.
func (rt *runtime) policyDefaults(p scheduler.Policy) scheduler.Policy {
	if p.Kind == scheduler.PolicyRepeatEvery && p.Overlap == "" {
		p.Overlap = rt.cfg.OverlapMode()
	}
	return p
}

// startBackground runs the history recorder, the notifier and the config
// watcher as configured.
func (rt *runtime) startBackground(ctx context.Context) {
	ctx, rt.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if rt.cfg.History.Enabled {
		store, err := history.NewStore(rt.cfg.History.Path)
		if err != nil {
			rt.log.Warn("history disabled", logx.Err(err))
		} else {
			events, unsubscribe := rt.sched.Subscribe(256)
			rt.closers = append(rt.closers, unsubscribe)
			recorder := history.NewRecorder(store, rt.cfg.History.MaxEntries, rt.log)
			rt.goBackground(func() { recorder.Run(ctx, events) })
		}
	}

	if rt.cfg.Notify.Enabled {
		events, unsubscribe := rt.sched.Subscribe(64)
		rt.closers = append(rt.closers, unsubscribe)
		notifier := notify.New(rt.log)
		rt.goBackground(func() { notifier.Run(ctx, events) })
	}

	updates := rt.cfgMgr.Subscribe(1)
	rt.closers = append(rt.closers, func() { rt.cfgMgr.Unsubscribe(updates) })
	rt.goBackground(func() {
		for cfg := range updates {
			rt.logSvc.Apply(rt.logConfig(cfg))
			rt.sched.SetKillGrace(cfg.KillGrace())
			rt.log.Info("config applied", logx.String("level", cfg.Logging.Level), logx.Duration("kill_grace", cfg.KillGrace()))
		}
	})
	go func() {
		if err := rt.cfgMgr.Watch(ctx); err != nil {
			rt.log.Debug("config watch unavailable", logx.Err(err))
		}
	}()
}

func (rt *runtime) goBackground(fn func()) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		fn()
	}()
}

// Close unsubscribes the background workers, lets them drain what they
// already received, then closes the log sinks.
func (rt *runtime) Close() {
	for _, closeFn := range rt.closers {
		closeFn()
	}
	rt.wg.Wait()
	if rt.cancel != nil {
		rt.cancel()
	}
	_ = rt.logSvc.Close()
}

// Package daemon wires configuration, plugins and the dictation pipeline
// together behind the control socket.
package daemon

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/hushtype/hushtype/internal/activewindow"
	"github.com/hushtype/hushtype/internal/audio"
	"github.com/hushtype/hushtype/internal/bus"
	"github.com/hushtype/hushtype/internal/config"
	"github.com/hushtype/hushtype/internal/history"
	"github.com/hushtype/hushtype/internal/injection"
	"github.com/hushtype/hushtype/internal/llm"
	"github.com/hushtype/hushtype/internal/notify"
	"github.com/hushtype/hushtype/internal/pipeline"
	"github.com/hushtype/hushtype/internal/plugin"
	"github.com/hushtype/hushtype/internal/plugin/builtin"
	"github.com/hushtype/hushtype/internal/recording"
	"github.com/hushtype/hushtype/internal/transcriber"
)

type Daemon struct {
	version string
	manager *config.Manager

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the rebuildable components below; handle() runs on
	// per-connection goroutines and reconfigure() on the config watcher.
	mu       sync.RWMutex
	pipeline *pipeline.Pipeline
	plugins  *plugin.Registry
	store    history.Store
}

func New(version string, manager *config.Manager) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		version: version,
		manager: manager,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// seedDefaultManifests creates the plugin directory on first run and
// enables the bundled plugins. Existing directories are left alone so
// users can disable a builtin by editing or deleting its manifest.
func seedDefaultManifests(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, id := range []string{"normalize", "rewrite"} {
		manifest := fmt.Sprintf("id = %q\nenabled = true\n", id)
		path := filepath.Join(dir, id+".toml")
		if err := os.WriteFile(path, []byte(manifest), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// PluginDir resolves the manifest directory (~/.config/hushtype/plugins
// unless overridden).
func PluginDir(cfg *config.Config) (string, error) {
	if cfg.Plugins.Dir != "" {
		return cfg.Plugins.Dir, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "hushtype", "plugins"), nil
}

// Run starts the daemon and blocks until shutdown.
func (d *Daemon) Run() error {
	pidFile, err := bus.DefaultPidFile()
	if err != nil {
		return err
	}
	if err := pidFile.CheckExisting(); err != nil {
		return err
	}

	ln, err := bus.Listen()
	if err != nil {
		return err
	}
	defer ln.Close()

	if err := pidFile.Create(); err != nil {
		return fmt.Errorf("failed to create PID file: %w", err)
	}
	defer pidFile.Remove()

	if err := d.build(d.manager.GetConfig()); err != nil {
		return err
	}
	defer d.teardown()

	d.manager.OnReload(func(cfg *config.Config) {
		d.reconfigure(cfg)
	})
	if err := d.manager.StartWatching(d.ctx); err != nil {
		log.Printf("daemon: config watch disabled: %v", err)
	}
	defer d.manager.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	go func() {
		sig := <-sigCh
		log.Printf("daemon: received signal %v, shutting down", sig)
		d.cancel()
	}()

	// Close the listener when context is done so Accept unblocks.
	go func() {
		<-d.ctx.Done()
		ln.Close()
	}()

	log.Printf("daemon: listening on control socket")

	for {
		c, err := ln.Accept()
		if err != nil {
			if d.ctx.Err() != nil {
				log.Printf("daemon: shutdown requested")
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go d.handle(c)
	}
}

// build constructs the pipeline and its collaborators from a validated
// config.
func (d *Daemon) build(cfg *config.Config) error {
	tr, err := transcriber.New(transcriber.Config{
		Provider:  cfg.Transcription.Provider,
		APIKey:    cfg.APIKeyFor(cfg.Transcription.Provider),
		Language:  cfg.Transcription.Language,
		Model:     cfg.Transcription.Model,
		Threads:   cfg.Transcription.Threads,
		Translate: cfg.Transcription.Translate,
	})
	if err != nil {
		return fmt.Errorf("transcriber setup failed: %w", err)
	}

	recorder := recording.NewRecorder(recording.Config{
		Device:       cfg.Recording.Device,
		RingCapacity: cfg.Recording.BufferSecs * audio.SampleRate,
	})

	injector := injection.NewDefaultInjector(injection.Config{
		Method:           injection.Method(cfg.Injection.Method),
		KeystrokeDelay:   cfg.Injection.KeystrokeDelay,
		SettleDelay:      cfg.Injection.SettleDelay,
		RestoreClipboard: cfg.Injection.RestoreClipboard,
		TypingTimeout:    cfg.Injection.TypingTimeout,
		ClipboardTimeout: cfg.Injection.ClipboardTimeout,
	})

	if cfg.LLM.Enabled {
		gen, err := llm.NewGenerator(llm.Config{
			Provider: cfg.LLM.Provider,
			APIKey:   cfg.APIKeyFor(cfg.LLM.Provider),
			Model:    cfg.LLM.Model,
		})
		if err != nil {
			log.Printf("daemon: LLM disabled: %v", err)
		} else {
			builtin.SetGenerator(gen, cfg.LLM.MaxTokens)
		}
	} else {
		builtin.SetGenerator(nil, 0)
	}

	plugins := plugin.NewRegistry()
	pluginDir, err := PluginDir(cfg)
	if err != nil {
		log.Printf("daemon: plugin directory unavailable: %v", err)
	} else {
		if err := seedDefaultManifests(pluginDir); err != nil {
			log.Printf("daemon: plugin directory setup: %v", err)
		}
		plugins.Discover(pluginDir)
		if cfg.Plugins.Watch {
			go func() {
				if err := plugins.Watch(d.ctx, pluginDir); err != nil {
					log.Printf("daemon: plugin watch disabled: %v", err)
				}
			}()
		}
	}

	var store history.Store
	if cfg.History.Enabled {
		path := cfg.History.Path
		if path == "" {
			path, err = history.DefaultPath()
			if err != nil {
				log.Printf("daemon: history disabled: %v", err)
			}
		}
		if path != "" {
			store, err = history.Open(path)
			if err != nil {
				log.Printf("daemon: history disabled: %v", err)
				store = nil
			}
		}
	}

	p := pipeline.New(pipeline.Config{
		Mode:            cfg.General.Mode,
		TrimSensitivity: cfg.Recording.TrimSensitivity,
		InjectionMethod: injection.Method(cfg.Injection.Method),
		SessionTimeout:  cfg.Recording.Timeout,
	}, pipeline.Deps{
		Capturer:    recorder,
		Transcriber: tr,
		Injector:    injector,
		Plugins:     plugins,
		History:     store,
		Windows:     activewindow.Hyprctl{},
		Notifier:    notify.NewDesktop(cfg.Notifications.Enabled),
	})

	d.mu.Lock()
	d.pipeline = p
	d.plugins = plugins
	d.store = store
	d.mu.Unlock()

	return nil
}

func (d *Daemon) currentPipeline() *pipeline.Pipeline {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.pipeline
}

func (d *Daemon) currentPlugins() *plugin.Registry {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.plugins
}

func (d *Daemon) teardown() {
	d.mu.Lock()
	p, plugins, store := d.pipeline, d.plugins, d.store
	d.pipeline, d.plugins, d.store = nil, nil, nil
	d.mu.Unlock()

	if p != nil {
		p.Stop()
	}
	if plugins != nil {
		plugins.Shutdown()
	}
	if store != nil {
		if err := store.Close(); err != nil {
			log.Printf("daemon: history close: %v", err)
		}
	}
}

// reconfigure rebuilds the pipeline from a freshly reloaded config. A
// session in flight finishes against the old collaborators first.
func (d *Daemon) reconfigure(cfg *config.Config) {
	d.mu.Lock()
	oldPipeline, oldPlugins, oldStore := d.pipeline, d.plugins, d.store
	d.mu.Unlock()

	if oldPipeline != nil && oldPipeline.Status() != pipeline.Idle {
		log.Printf("daemon: waiting for active session before applying new config")
		oldPipeline.Stop()
	}

	// Badger holds a directory lock, so the old store must close before
	// build can reopen it.
	if oldStore != nil {
		if err := oldStore.Close(); err != nil {
			log.Printf("daemon: history close: %v", err)
		}
	}

	if err := d.build(cfg); err != nil {
		log.Printf("daemon: reconfigure failed, keeping previous pipeline: %v", err)
		return
	}
	if oldPlugins != nil {
		oldPlugins.Shutdown()
	}
	log.Printf("daemon: configuration applied")
}

func (d *Daemon) handle(c net.Conn) {
	defer c.Close()

	line, err := bufio.NewReader(c).ReadString('\n')
	if err != nil {
		fmt.Fprintf(c, "ERR read_error: %v\n", err)
		return
	}
	if len(line) == 0 {
		fmt.Fprint(c, "ERR empty\n")
		return
	}

	p := d.currentPipeline()
	if p == nil {
		fmt.Fprint(c, "ERR shutting_down\n")
		return
	}

	switch line[0] {
	case bus.CmdToggle:
		p.Toggle(d.ctx)
		fmt.Fprint(c, "OK toggled\n")

	case bus.CmdCancel:
		p.Stop()
		fmt.Fprint(c, "OK cancelled\n")

	case bus.CmdStatus:
		fmt.Fprintf(c, "STATUS %s\n", statusLine(p.Snapshot()))

	case bus.CmdPlugins:
		// The registry is torn down alongside the pipeline but under a
		// separate read, so a connection racing shutdown can still see nil.
		reg := d.currentPlugins()
		if reg == nil {
			fmt.Fprint(c, "ERR shutting_down\n")
			return
		}
		fmt.Fprintf(c, "PLUGINS %s\n", pluginsLine(reg.List()))

	case bus.CmdVersion:
		fmt.Fprintf(c, "STATUS version=%s proto=%s\n", d.version, bus.ProtoVer)

	case bus.CmdQuit:
		fmt.Fprint(c, "OK quitting\n")
		d.cancel()

	default:
		log.Printf("daemon: unknown command: %c", line[0])
		fmt.Fprintf(c, "ERR unknown=%q\n", line[0])
	}
}

func statusLine(s pipeline.State) string {
	parts := []string{"status=" + string(s.Status)}
	if s.CurrentError != "" {
		parts = append(parts, fmt.Sprintf("error=%q", s.CurrentError))
	}
	if s.LastTranscriptionPreview != "" {
		parts = append(parts, fmt.Sprintf("last=%q", s.LastTranscriptionPreview))
	}
	return strings.Join(parts, " ")
}

func pluginsLine(statuses []plugin.Status) string {
	if len(statuses) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		state := "inactive"
		if s.Active {
			state = "active"
		}
		var caps []string
		if s.Processor {
			caps = append(caps, "processor")
		}
		if s.Commander {
			caps = append(caps, "commander")
		}
		parts = append(parts, fmt.Sprintf("%s@%s[%s:%s]",
			s.Info.ID, s.Info.Version, state, strings.Join(caps, "+")))
	}
	return strings.Join(parts, " ")
}

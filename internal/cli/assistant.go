package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/emty-pyie/Jane/internal/chat"
	"github.com/emty-pyie/Jane/internal/config"
	"github.com/emty-pyie/Jane/internal/core"
	"github.com/emty-pyie/Jane/internal/notes"
	"github.com/emty-pyie/Jane/internal/speech"
	"github.com/emty-pyie/Jane/internal/system"
)

// assistant bundles a controller with the resources it owns.
type assistant struct {
	*core.Controller

	notes  notes.Store
	speech *speech.Queue
}

// assistantDeps are the OS boundaries an assistant is built on. Tests swap
// them for fakes.
type assistantDeps struct {
	launcher system.Launcher
	platform system.Platform
	listener core.Listener
	chat     core.ChatBackend
}

func defaultAssistantDeps() assistantDeps {
	return assistantDeps{
		launcher: system.ExecLauncher{},
		platform: system.Detect(),
	}
}

// openNotes opens the configured notes store, resolving relative paths
// against the project directory.
func openNotes(cfg config.Config, project string) (notes.Store, error) {
	opts := notes.Options{
		Backend:      cfg.Notes.Backend,
		FilePath:     cfg.Notes.FilePath,
		DatabasePath: cfg.Notes.DatabasePath,
	}
	if project != "" {
		if opts.FilePath != "" && !filepath.IsAbs(opts.FilePath) {
			opts.FilePath = filepath.Join(project, opts.FilePath)
		}
		if opts.DatabasePath != "" && !filepath.IsAbs(opts.DatabasePath) {
			opts.DatabasePath = filepath.Join(project, opts.DatabasePath)
		}
	}
	store, err := notes.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening notes: %w", err)
	}
	return store, nil
}

// newAssistant wires a controller from cfg.
func newAssistant(cfg config.Config, project string, logger *log.Logger, deps assistantDeps) (*assistant, error) {
	store, err := openNotes(cfg, project)
	if err != nil {
		return nil, err
	}

	a := &assistant{notes: store}

	var speaker core.Speaker
	if cfg.Assistant.SpeakEnabled {
		line := cfg.Assistant.TTSCommand
		if line == "" {
			line = speech.DefaultCommand(deps.platform)
		}
		if line == "" {
			logger.Warn("speech enabled but no tts command for this platform", "platform", deps.platform)
		} else {
			backend, err := speech.NewCommandSpeaker(line, deps.launcher)
			if err != nil {
				_ = store.Close()
				return nil, err
			}
			a.speech = speech.NewQueue(backend, logger)
			speaker = a.speech
		}
	}

	chatBackend := deps.chat
	if chatBackend == nil {
		chatBackend = chat.NewGemini(chat.Config{
			Model:   cfg.Chat.Model,
			KeyEnv:  cfg.Chat.APIKeyEnv,
			Timeout: cfg.Chat.Timeout(),
		}, chat.WithLogger(logger))
	}

	a.Controller = core.NewController(core.ControllerConfig{
		Classifier:  core.NewClassifier(core.WithShutdownCountdown(cfg.Assistant.ShutdownCountdown)),
		Speaker:     speaker,
		Listener:    deps.listener,
		Logger:      logger,
		HistorySize: cfg.Assistant.HistorySize,
		ExecutorOptions: []core.ExecutorOption{
			core.WithLauncher(deps.launcher),
			core.WithPlatform(deps.platform),
			core.WithNoteSink(store),
			core.WithChatBackend(chatBackend),
		},
	})
	return a, nil
}

// Close waits for running jobs, drains speech and closes the notes store.
func (a *assistant) Close(ctx context.Context) error {
	var errs []error
	if err := a.Controller.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close controller: %w", err))
	}
	if a.speech != nil {
		if err := a.speech.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close speech: %w", err))
		}
	}
	if err := a.notes.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close notes: %w", err))
	}
	return errors.Join(errs...)
}

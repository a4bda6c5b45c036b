package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"arena/internal/agent"
	"arena/internal/config"
	"arena/internal/events"
	"arena/internal/orchestrator"
	"arena/internal/session"
	"arena/internal/store"
	"arena/internal/tui"
)

var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Arena runs coordinated multi-agent missions",
	Long: `Arena coordinates a team of CLI-backed agents on a shared mission.
A director agent decomposes the mission, delegates tasks to doer agents,
rules on their questions and conflicts, and declares completion. Every
message flows through arena; the full transcript, decision log, task
board and budget report are persisted per session.`,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("ARENA")
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().String("session-dir", "", "session store root (default ~/.arena/sessions)")
	rootCmd.PersistentFlags().Bool("verbose", false, "debug logging")
	_ = viper.BindPFlag("session-dir", rootCmd.PersistentFlags().Lookup("session-dir"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newExportCmd())
}

// env bundles everything a command needs once flags are resolved.
type env struct {
	cfg   *config.Config
	store *store.FileStore
	log   *slog.Logger
	pm    *agent.ProcessManager
}

func buildEnv() (*env, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, err
	}
	dir := viper.GetString("session-dir")
	if dir == "" {
		dir = cfg.Defaults.SessionDir
	}
	st, err := store.NewFileStore(dir)
	if err != nil {
		return nil, fmt.Errorf("opening session store: %w", err)
	}

	level := slog.LevelInfo
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	return &env{cfg: cfg, store: st, log: log, pm: agent.NewProcessManager()}, nil
}

// clientFactory builds per-participant agent clients from the role config,
// optionally wrapped with retry and circuit breaking.
func clientFactory(e *env, autonomous, retry bool) agent.Factory {
	return func(participant, handle string) (agent.Client, error) {
		rc := e.cfg.Role(participant)
		pc := e.cfg.Provider(rc.Provider)
		client, err := agent.New(agent.Config{
			Command:      pc.Command,
			Handle:       handle,
			Model:        rc.Model,
			SystemPrompt: rc.SystemPrompt,
			Autonomous:   autonomous,
		}, e.pm)
		if err != nil {
			return nil, err
		}
		if !retry {
			return client, nil
		}
		return agent.NewRetryClient(client, agent.DefaultRetryConfig(), e.log), nil
	}
}

func newRunCmd() *cobra.Command {
	var (
		mission     string
		missionFile string
		doers       []string
		budget      int
		watch       bool
		retry       bool
		autonomous  bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a new mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}

			if missionFile != "" {
				mf, err := config.LoadMission(missionFile)
				if err != nil {
					return err
				}
				mission = mf.Mission
				doers = mf.Doers
				if mf.Budget > 0 && budget == 0 {
					budget = mf.Budget
				}
			}
			if budget == 0 {
				budget = e.cfg.Defaults.Budget
			}
			if !autonomous {
				autonomous = e.cfg.Defaults.Autonomous
			}

			bus := events.NewBus()
			defer bus.Close()
			svc := orchestrator.NewService(e.store, clientFactory(e, autonomous, retry), bus, e.log)

			router, err := svc.Start(orchestrator.StartParams{
				Mission: mission,
				Doers:   doers,
				Budget:  budget,
			})
			if err != nil {
				return err
			}
			fmt.Println("session:", router.SessionID())
			return drive(cmd.Context(), e, svc, router, bus, watch)
		},
	}
	cmd.Flags().StringVarP(&mission, "mission", "m", "", "mission text")
	cmd.Flags().StringVarP(&missionFile, "mission-file", "f", "", "YAML mission file")
	cmd.Flags().StringSliceVarP(&doers, "doers", "d", nil, "doer roles (e.g. coder,reviewer)")
	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "shared turn budget")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "live TUI view")
	cmd.Flags().BoolVar(&retry, "retry", false, "retry transient agent failures")
	cmd.Flags().BoolVar(&autonomous, "autonomous", false, "run agents without permission prompts")
	return cmd
}

func newResumeCmd() *cobra.Command {
	var (
		watch      bool
		retry      bool
		autonomous bool
	)
	cmd := &cobra.Command{
		Use:   "resume <session-id>",
		Short: "Resume a paused mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			if !autonomous {
				autonomous = e.cfg.Defaults.Autonomous
			}

			bus := events.NewBus()
			defer bus.Close()
			svc := orchestrator.NewService(e.store, clientFactory(e, autonomous, retry), bus, e.log)

			router, err := svc.Resume(args[0])
			if err != nil {
				return err
			}
			if router == nil {
				fmt.Println("session already finished; nothing to resume")
				return nil
			}
			return drive(cmd.Context(), e, svc, router, bus, watch)
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "live TUI view")
	cmd.Flags().BoolVar(&retry, "retry", false, "retry transient agent failures")
	cmd.Flags().BoolVar(&autonomous, "autonomous", false, "run agents without permission prompts")
	return cmd
}

func newListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			svc := orchestrator.NewService(e.store, nil, events.NewBus(), e.log)
			sessions, err := svc.List(session.Status(status))
			if err != nil {
				return err
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"ID", "Status", "Turns", "Doers", "Updated", "Mission"})
			for _, s := range sessions {
				tw.AppendRow(table.Row{
					s.ID,
					s.Status,
					fmt.Sprintf("%d/%d", s.TurnsUsed, s.Budget),
					len(s.DoerRoles),
					s.UpdatedAt.Local().Format(time.DateTime),
					truncate(s.Mission, 48),
				})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (running, paused, completed, failed)")
	return cmd
}

func newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Export a session as markdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEnv()
			if err != nil {
				return err
			}
			doc, err := store.ExportMarkdown(e.store, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Print(doc)
				return nil
			}
			if err := os.WriteFile(out, []byte(doc), 0644); err != nil {
				return err
			}
			fmt.Println("wrote", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

// drive runs one router to completion, either headless with a plain event
// printer or under the TUI watcher. Ctrl+C requests a cooperative stop; a
// second signal kills tracked subprocesses.
func drive(parent context.Context, e *env, svc *orchestrator.Service, router *orchestrator.Router, bus *events.Bus, watch bool) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer e.pm.KillAll()

	go func() {
		<-ctx.Done()
		svc.Stop(router.SessionID())
	}()

	if watch {
		return driveWatch(ctx, e, router, bus)
	}

	g, gctx := errgroup.WithContext(ctx)
	sub := bus.SubscribeAll(256)
	g.Go(func() error {
		return router.Run(gctx)
	})
	g.Go(func() error {
		printEvents(sub)
		return nil
	})
	err := g.Wait()
	bus.Close()
	return err
}

func driveWatch(ctx context.Context, e *env, router *orchestrator.Router, bus *events.Bus) error {
	sess, err := e.store.Get(router.SessionID())
	if err != nil {
		return err
	}
	p := tea.NewProgram(tui.New(sess, bus), tea.WithAltScreen(), tea.WithContext(ctx))

	g := new(errgroup.Group)
	g.Go(func() error {
		defer p.Quit()
		return router.Run(ctx)
	})
	g.Go(func() error {
		_, err := p.Run()
		return err
	})
	return g.Wait()
}

func printEvents(sub <-chan events.Event) {
	for ev := range sub {
		switch ev := ev.(type) {
		case events.MessageEvent:
			fmt.Printf("[%s -> %s] %s\n%s\n\n",
				ev.Message.From, ev.Message.To, ev.Message.Type, ev.Message.Content)
		case events.DecisionEvent:
			fmt.Printf("* decision: %s %s\n", ev.Decision.Kind, ev.Decision.Target)
		case events.ErrorEvent:
			fmt.Printf("! error in %s (%s): %v\n", ev.Step, ev.AgentID, ev.Err)
		case events.CompletedEvent:
			fmt.Printf("= %s: %s\n", ev.Status, ev.Reason)
			return
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}

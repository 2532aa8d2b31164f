package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/partnet/seauto/cdp"
	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/config"
	"github.com/partnet/seauto/log"
	"github.com/partnet/seauto/trace"
)

type globalFlags struct {
	configFile string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:           "seauto-probe",
		Short:         "Probe a browser through its DevTools websocket",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&gf.configFile, "config", "c", "", "YAML settings file")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "log level, overrides log.level")

	root.AddCommand(
		newVersionCmd(&gf),
		newWaitCmd(&gf),
		newScreenshotCmd(&gf),
	)

	return root
}

// session is what every subcommand needs to talk to the browser.
type session struct {
	conf   *config.Config
	logger *log.Logger
	target *cdp.Target
	view   *common.View
	closer io.Closer
	prov   trace.Provider
	tracer *trace.Tracer
}

func openSession(ctx context.Context, gf *globalFlags, command, wsURL string) (*session, error) {
	overrides := map[string]string{}
	if gf.logLevel != "" {
		overrides[config.KeyLogLevel] = gf.logLevel
	}
	conf, err := config.New(config.Options{File: gf.configFile, Overrides: overrides})
	if err != nil {
		return nil, err
	}

	s := &session{conf: conf}
	level, _ := conf.String(config.KeyLogLevel)
	if file := conf.OptionalString(config.KeyLogFile); file.Valid && file.String != "" {
		s.logger, s.closer, err = log.NewFileLogger(file.String, level, log.FileOptions{MaxSizeMB: 10, MaxBackups: 3})
	} else {
		s.logger, err = log.NewWithLevel(level, os.Stderr)
	}
	if err != nil {
		return nil, err
	}

	s.prov = trace.NewNoopProvider()
	if endpoint := conf.OptionalString(config.KeyTracingEndpoint); endpoint.Valid {
		proto, _ := conf.String(config.KeyTracingProto)
		insecure := conf.OptionalBool(config.KeyTracingInsecure).ValueOrZero()
		if s.prov, err = trace.NewProvider(ctx, proto, endpoint.String, insecure); err != nil {
			s.close()
			return nil, err
		}
	}
	s.tracer = trace.NewTracer(s.logger.Logger, s.prov, map[string]string{"command": command})

	if s.target, err = cdp.Dial(ctx, wsURL, cdp.Options{Logger: s.logger}); err != nil {
		s.close()
		return nil, err
	}
	s.view = common.NewView(s.target, common.ViewOptions{Logger: s.logger, Config: conf, Tracer: s.tracer})

	return s, nil
}

func (s *session) close() {
	if s.target != nil {
		if err := s.target.Close(); err != nil {
			s.logger.Debugf("seauto-probe", "closing target: %v", err)
		}
	}
	s.tracer.Close()
	if s.prov != nil {
		if err := s.prov.Shutdown(context.Background()); err != nil {
			s.logger.Warnf("seauto-probe", "flushing traces: %v", err)
		}
	}
	if s.closer != nil {
		_ = s.closer.Close()
	}
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt)
}

func newVersionCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version <ws-url>",
		Short: "Print the browser version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			s, err := openSession(ctx, gf, cmd.Name(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			info, err := s.target.Version(ctx)
			if err != nil {
				return err
			}
			buf, err := json.Marshal(info)
			if err != nil {
				return err
			}
			prettyf(func(format string, a ...interface{}) {
				fmt.Fprintf(cmd.OutOrStdout(), format+"\n", a...)
			}, "%s", buf)

			return nil
		},
	}
}

func newWaitCmd(gf *globalFlags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "wait <ws-url>",
		Short: "Wait for the active page to finish loading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			s, err := openSession(ctx, gf, cmd.Name(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			wait := s.view.WaitForPageToLoad
			if strict {
				wait = s.view.WaitForPageToLoadStrict
			}
			if err := wait(ctx); err != nil {
				return err
			}

			handles, err := s.target.WindowHandles(ctx)
			if err != nil {
				return err
			}
			title, err := s.target.Title(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			color.New(color.FgGreen).Fprint(out, "ready ")
			fmt.Fprintf(out, "%q (%d windows open)\n", title, len(handles))

			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on the first communication error")

	return cmd
}

func newScreenshotCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "screenshot <ws-url> <path>",
		Short: "Save a screenshot of the active page",
		Long: "Save a screenshot of the active page. Relative paths are resolved\n" +
			"against screenshots.dir and a .png extension is added when missing.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext(cmd)
			defer cancel()

			s, err := openSession(ctx, gf, cmd.Name(), args[0])
			if err != nil {
				return err
			}
			defer s.close()

			saved, err := s.view.SaveScreenshot(ctx, args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !saved {
				color.New(color.FgYellow).Fprintln(out, "screenshots are disabled (screenshots.allow)")
				return nil
			}
			color.New(color.FgGreen).Fprint(out, "saved ")
			fmt.Fprintln(out, args[1])

			return nil
		},
	}
}

func prettyf(printf func(string, ...interface{}), format string, args ...interface{}) {
	b, ok := args[0].([]byte)
	if !ok {
		printf(format, args...)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, b, "", "  "); err != nil {
		printf(format, args...)
		return
	}
	printf(format, append([]interface{}{pretty.Bytes()}, args[1:]...)...)
}

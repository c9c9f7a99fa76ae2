package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/AurifyAE/Mac-and-Ro/internal/console"
	"github.com/AurifyAE/Mac-and-Ro/internal/eventstream"
	"github.com/AurifyAE/Mac-and-Ro/internal/session"
)

func eventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect the exchange push channel",
	}
	cmd.AddCommand(eventsTailCmd(a))
	return cmd
}

func eventsTailCmd(a *app) *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print push events as they arrive until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := a.current(ctx)
			if err != nil {
				return err
			}

			filter := make([]eventstream.EventType, 0, len(types))
			for _, t := range types {
				et := eventstream.EventType(t)
				if !et.Known() {
					return fmt.Errorf("unknown event type %q", t)
				}
				filter = append(filter, et)
			}

			client := &http.Client{Transport: &oauth2.Transport{Source: session.TokenSource(s), Base: http.DefaultTransport}}
			h, err := eventstream.Connect(ctx, a.cfg.Upstream.EventsURL,
				eventstream.WithHTTPClient(client),
				eventstream.WithBackoff(console.BackoffFor(a.cfg.Events)),
				eventstream.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			defer h.Close()

			out := cmd.OutOrStdout()
			h.OnEvent(func(ev eventstream.Event) {
				if a.jsonOut {
					_ = writeJSON(out, ev)
					return
				}
				fmt.Fprintf(out, "%s  %-24s %s\n", ev.ReceivedAt.Local().Format(time.TimeOnly), ev.Type, ev.Message)
			}, filter...)

			fmt.Fprintf(cmd.ErrOrStderr(), "Listening on %s\n", h.URL())
			<-h.Done()
			a.logger.Debug("event stream closed", zap.Int("attempts", h.Attempts()))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "only these event types")
	return cmd
}

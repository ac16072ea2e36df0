package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagewidgets/pagewidgets-server/internal/client"
	"github.com/pagewidgets/pagewidgets-server/internal/widget/todo"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

var (
	flagTodoDate    string
	flagTodoPreview bool
)

var todoCmd = &cobra.Command{
	Use:   "todo [token|embed-url]",
	Short: "Run a to-do widget in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !flagTodoPreview {
			return errors.New("a widget token is required unless --preview is set")
		}

		l, closeLog, err := tuiLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		conf := todo.Config{Date: flagTodoDate, Logger: l}
		theme := widgetcfg.TodoTheme()

		if len(args) == 0 {
			conf.Backend = todo.NewPreview()
		} else {
			_, token := parseWidgetArg(args[0], widgetcfg.TodoRoute)
			c := client.New(cfg.Server, l)
			w, err := c.TodoWidget(ctx, token)
			if err != nil {
				return fmt.Errorf("load widget: %w", err)
			}

			store, err := openMarkers(l)
			if err != nil {
				return fmt.Errorf("open marker store: %w", err)
			}
			defer store.Close()

			conf.Backend = client.NewTodoBackend(c, w.Config)
			conf.Markers = store
			conf.DatabaseID = w.Config.DatabaseID
			conf.Recurring = w.Recurring
			theme = w.Config.Theme
		}

		ctrl := todo.New(conf)
		go func() {
			if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Warn("to-do controller stopped", "error", err)
			}
		}()

		return runProgram(newTodoModel(ctx, ctrl, newStyles(theme)))
	},
}

func init() {
	todoCmd.Flags().StringVar(&flagTodoDate, "date", "", "show this date (YYYY-MM-DD) instead of today")
	todoCmd.Flags().BoolVar(&flagTodoPreview, "preview", false, "run on sample data without a knowledge base")
}

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pagewidgets/pagewidgets-server/internal/client"
	"github.com/pagewidgets/pagewidgets-server/internal/widget/search"
	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

var flagSearchMax int

var searchCmd = &cobra.Command{
	Use:   "search [token|embed-url]",
	Short: "Run a book search widget in the terminal",
	Long: "Run a book search widget in the terminal. Without a token, or with a\n" +
		"token that names no knowledge base, selections are shown but not saved.",
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, closeLog, err := tuiLogger()
		if err != nil {
			return err
		}
		defer closeLog()

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		c := client.New(cfg.Server, l)
		conf := search.Config{Searcher: c, MaxResults: flagSearchMax, Logger: l}
		theme := widgetcfg.BookTheme()

		if len(args) == 1 {
			_, token := parseWidgetArg(args[0], widgetcfg.BookRoute)
			w, err := c.BookWidget(ctx, token)
			if err != nil {
				return fmt.Errorf("load widget: %w", err)
			}
			if !w.SearchOnly {
				conf.Saver = client.BookSaver{Client: c, Config: w.Config}
			}
			theme = w.Config.Theme
		}

		ctrl := search.New(conf)
		return runProgram(newSearchModel(ctx, ctrl, newStyles(theme)))
	},
}

func init() {
	searchCmd.Flags().IntVar(&flagSearchMax, "max-results", 10, "results per search")
}

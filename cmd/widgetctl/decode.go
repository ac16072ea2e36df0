package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pagewidgets/pagewidgets-server/internal/widgetcfg"
)

var (
	flagDecodeKind   string
	flagDecodeReveal bool
)

var decodeCmd = &cobra.Command{
	Use:   "decode <token|embed-url>",
	Short: "Print the config carried by a widget token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, token := parseWidgetArg(args[0], flagDecodeKind)

		var v any
		switch kind {
		case widgetcfg.TodoRoute:
			t, err := widgetcfg.DecodeTodo(token)
			if err != nil {
				return err
			}
			if !flagDecodeReveal {
				t.APIKey = maskSecret(t.APIKey)
			}
			v = t
		default:
			b := widgetcfg.DecodeBook(token)
			if !flagDecodeReveal {
				b.APIKey = maskSecret(b.APIKey)
			}
			v = b
		}

		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}

func init() {
	decodeCmd.Flags().StringVar(&flagDecodeKind, "kind", "", "widget kind when not given an embed URL: book or todo (default book)")
	decodeCmd.Flags().BoolVar(&flagDecodeReveal, "reveal", false, "print the Notion token in full")
}

// parseWidgetArg accepts a bare token or an embed URL and returns the widget
// route and the token. An explicit kind wins over the URL's route.
func parseWidgetArg(arg, kind string) (route, token string) {
	token = strings.TrimSpace(arg)
	if u, err := url.Parse(token); err == nil && u.Scheme != "" && u.Host != "" {
		dir, last := path.Split(strings.TrimRight(u.Path, "/"))
		token = last
		route = path.Base(strings.TrimRight(dir, "/"))
	}
	switch kind {
	case "todo", widgetcfg.TodoRoute:
		route = widgetcfg.TodoRoute
	case "book", widgetcfg.BookRoute:
		route = widgetcfg.BookRoute
	}
	if route != widgetcfg.TodoRoute {
		route = widgetcfg.BookRoute
	}
	return route, token
}

func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/mcp"
	"github.com/effective-security/toolagent/mcp/transport/httptransport"
	"github.com/effective-security/toolagent/tools/calculator"
	"github.com/effective-security/xlog"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/cmd", "mcp-calculator")

func newApp() *cli.App {
	return &cli.App{
		Name:  "mcp-calculator",
		Usage: "serves the calculator tools over JSON-RPC",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "address to listen on",
				Value:   httptransport.DefaultAddr,
				EnvVars: []string{"MCP_LISTEN"},
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "path of the JSON-RPC endpoint",
				Value: httptransport.DefaultEndpoint,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "enable debug logging",
			},
		},
		Before: setupLogger,
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:  "tools",
				Usage: "print the tool catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output format: yaml|json",
						Value:   "yaml",
					},
				},
				Action: printTools,
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	if c.Bool("verbose") {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.INFO)
	}
	return nil
}

func serve(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := calculator.NewRegistry()
	srv := httptransport.NewServer(mcp.NewServer(registry),
		httptransport.WithAddr(c.String("listen")),
		httptransport.WithEndpoint(c.String("endpoint")),
	)
	if err := srv.Listen(); err != nil {
		return err
	}

	logger.KV(xlog.NOTICE,
		"status", "starting",
		"addr", srv.Addr(),
		"endpoint", c.String("endpoint"),
		"tools", registry.Names(),
	)
	fmt.Fprintf(c.App.Writer, "Starting MCP Calculator Server on http://%s\n", srv.Addr())

	return srv.Serve(ctx)
}

func printTools(c *cli.Context) error {
	js, err := json.MarshalIndent(calculator.NewRegistry().List(), "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	switch c.String("output") {
	case "json":
		_, err = fmt.Fprintln(c.App.Writer, string(js))
		return errors.WithStack(err)
	case "yaml":
		out, err := toYAML(js)
		if err != nil {
			return err
		}
		_, err = c.App.Writer.Write(out)
		return errors.WithStack(err)
	}
	return errors.Newf("unsupported output format: %s", c.String("output"))
}

// toYAML converts JSON document to YAML, keeping the keys order
func toYAML(js []byte) ([]byte, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(js, &node); err != nil {
		return nil, errors.Wrap(err, "failed to parse JSON")
	}
	resetStyle(&node)
	out, err := yaml.Marshal(&node)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode YAML")
	}
	return out, nil
}

// resetStyle switches the flow style of the parsed JSON to block style
func resetStyle(node *yaml.Node) {
	node.Style = 0
	for _, n := range node.Content {
		resetStyle(n)
	}
}

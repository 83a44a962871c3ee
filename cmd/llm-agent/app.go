package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/callbacks"
	"github.com/effective-security/toolagent/mcp"
	"github.com/effective-security/toolagent/mcp/transport"
	"github.com/effective-security/toolagent/mcp/transport/httptransport"
	"github.com/effective-security/toolagent/mcp/transport/localtransport"
	"github.com/effective-security/toolagent/pkg/llmfactory"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/tools/calculator"
	"github.com/effective-security/xlog"
	"github.com/urfave/cli/v2"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent/cmd", "llm-agent")

// newModel returns the model configured by the command line
var newModel = func(c *cli.Context) (llms.Model, error) {
	return loadModel(c.String("config"), c.String("provider"), c.String("model"))
}

// loadModel returns the model of the provider when set,
// otherwise the model configured for the calculator assistant.
func loadModel(cfgFile, provider, model string) (llms.Model, error) {
	f, err := llmfactory.Load(cfgFile)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to load LLM config")
	}
	if provider != "" {
		return f.ModelByProvider(provider, model)
	}
	return f.AssistantModel(assistants.DefaultName, model)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "llm-agent",
		Usage: "LLM agent with MCP integration",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "one-time input to process",
			},
			&cli.StringFlag{
				Name:    "server",
				Aliases: []string{"s"},
				Usage:   "MCP server URL",
				Value:   "http://localhost:8000",
				EnvVars: []string{"MCP_SERVER_URL"},
			},
			&cli.BoolFlag{
				Name:    "test-api",
				Aliases: []string{"t"},
				Usage:   "test the LLM API connection only",
			},
			&cli.StringFlag{
				Name:    "config",
				Usage:   "path to the LLM providers config",
				EnvVars: []string{"LLM_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "provider",
				Usage:   "provider name or API type from the config, e.g. deepseek or OPENAI",
				EnvVars: []string{"LLM_PROVIDER"},
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "preferred model name",
			},
			&cli.BoolFlag{
				Name:  "local",
				Usage: "use the in-process calculator server instead of --server",
			},
			&cli.IntFlag{
				Name:  "max-steps",
				Usage: "maximum number of LLM completions per turn",
				Value: assistants.DefaultMaxSteps,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print the conversation details",
			},
		},
		Before: setupLogger,
		Action: run,
	}
}

func setupLogger(c *cli.Context) error {
	xlog.SetFormatter(xlog.NewStringFormatter(c.App.ErrWriter))
	if c.Bool("verbose") {
		xlog.SetGlobalLogLevel(xlog.DEBUG)
	} else {
		xlog.SetGlobalLogLevel(xlog.WARNING)
	}
	return nil
}

func run(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := newModel(c)
	if err != nil {
		return err
	}

	if c.Bool("test-api") {
		return testAPI(ctx, c.App.Writer, model)
	}

	var rt transport.RoundTripper
	if c.Bool("local") {
		rt = localtransport.New(mcp.NewServer(calculator.NewRegistry()))
		fmt.Fprintln(c.App.Writer, "Initializing LLM agent with local MCP server")
	} else {
		rt = httptransport.NewClient(c.String("server"))
		fmt.Fprintf(c.App.Writer, "Initializing LLM agent with MCP server at %s\n", c.String("server"))
	}

	s := &session{w: c.App.Writer}
	handler := callbacks.NewFanout(callbacks.NewPackageLogger(logger))
	if c.Bool("verbose") {
		s.recorder = callbacks.NewRecorder(callbacks.ModeDefault)
		handler.Add(callbacks.NewPrinter(c.App.Writer, callbacks.ModeVerbose))
		handler.Add(s.recorder)
	}

	agent := assistants.NewAgent(model, mcp.NewClient(rt),
		assistants.WithMaxSteps(c.Int("max-steps")),
		assistants.WithCallback(handler),
	)
	s.agent = agent

	fmt.Fprintln(c.App.Writer, "Connecting to MCP server...")
	info, err := agent.Connect(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Connected to server: %s\n", info.ServerInfo.Name)

	fmt.Fprintln(c.App.Writer, "Discovering tools...")
	list, err := agent.DiscoverTools(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Discovered %d tools\n", len(list))

	if input := c.String("input"); input != "" {
		fmt.Fprintf(c.App.Writer, "Processing input: %s\n", input)
		res, err := s.process(ctx, input)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "\nAssistant: %s\n", res)
		return nil
	}

	return s.interact(ctx, c.App.Reader)
}

// maxLineSize is the longest line accepted by the interactive loop
const maxLineSize = 1024 * 1024

type session struct {
	agent    *assistants.Agent
	recorder *callbacks.Recorder
	w        io.Writer
}

// process runs one turn and prints the turn stats when recorded
func (s *session) process(ctx context.Context, input string) (string, error) {
	res, err := s.agent.Process(ctx, input)
	if s.recorder != nil {
		if stats, _ := s.recorder.LastRun(s.agent.ChatID()); stats != nil {
			fmt.Fprintf(s.w, "Stats: %d LLM calls, %d tokens, %d tool calls, %d failed, %d not found, %s\n",
				stats.LLMCalls,
				stats.LLMTotalTokens,
				stats.ToolsCalls,
				stats.ToolsCallsFailed,
				stats.ToolNotFound,
				stats.Duration.Round(time.Millisecond),
			)
		}
	}
	return res, err
}

// interact reads the user input line by line until exit, quit or EOF
func (s *session) interact(ctx context.Context, r io.Reader) error {
	w := s.w
	fmt.Fprintln(w, "\nLLM Agent ready for interaction. Type 'exit' to quit.")

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for {
		fmt.Fprint(w, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(w)
			return errors.WithStack(scanner.Err())
		}

		input := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(input) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		fmt.Fprintln(w, "Processing...")
		res, err := s.process(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			fmt.Fprintf(w, "\nError: %s\n", err.Error())
			continue
		}
		fmt.Fprintf(w, "\nAssistant: %s\n", res)
	}
}

// testAPI sends a single greeting to the model
func testAPI(ctx context.Context, w io.Writer, model llms.Model) error {
	fmt.Fprintf(w, "====== TESTING %s API CONNECTION ======\n", model.GetProviderType())
	fmt.Fprintln(w, "Testing API connectivity...")

	resp, err := model.GenerateContent(ctx,
		[]llms.Message{
			llms.SystemMessage("You are a helpful assistant."),
			llms.UserMessage("Say hello!"),
		},
		llms.WithTemperature(assistants.DefaultTemperature),
		llms.WithMaxTokens(100),
	)
	if err != nil {
		return errors.WithMessage(err, "API test failed")
	}
	text, err := resp.Text()
	if err != nil {
		return errors.WithMessage(err, "API test failed")
	}

	fmt.Fprintf(w, "Response from %s: %s\n", model.GetName(), text)
	fmt.Fprintln(w, "API connection successful!")
	return nil
}

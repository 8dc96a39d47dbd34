package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// Version is set at build time via -ldflags
var Version = "dev"

// AppOptions holds the parsed command line.
type AppOptions struct {
	ConfigFile string
	List       bool
	Learn      string
	Remove     string
	Recognize  string
	Match      string
	Against    string
	Features   string
	Render     string
	Output     string
	Input      string
	MqttMode   bool
	HttpMode   bool
	HttpPort   int
}

// Runner is the set of commands the CLI dispatches to.
type Runner interface {
	ApplyOptions(opts AppOptions)
	RunList() error
	RunLearn(name, input string) error
	RunRemove(name string) error
	RunRecognize(input string) error
	RunMatch(a, b string) error
	RunFeatures(input string) error
	RunRender(input, output string) error
	RunService() error
}

func main() {
	if err := run(os.Args[1:], os.Stdout, NewApp(os.Stdout)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		log.Fatalf("Error: %v", err)
	}
}

func run(args []string, out io.Writer, app Runner) error {
	fs := flag.NewFlagSet("strokemesh", flag.ContinueOnError)
	fs.SetOutput(out)

	var opts AppOptions
	fs.StringVar(&opts.ConfigFile, "config", "config.yaml", "Path to configuration file")
	fs.BoolVar(&opts.List, "list", false, "List configured gestures and exit")
	fs.StringVar(&opts.Learn, "learn", "", "Add the stroke in -input as a template for gesture NAME")
	fs.StringVar(&opts.Input, "input", "", "Stroke file for -learn")
	fs.StringVar(&opts.Remove, "remove", "", "Remove gesture NAME from the config")
	fs.StringVar(&opts.Recognize, "recognize", "", "Recognize the stroke in FILE against the configured gestures")
	fs.StringVar(&opts.Match, "match", "", "Compare the stroke in FILE with the one in -against")
	fs.StringVar(&opts.Against, "against", "", "Second stroke file for -match")
	fs.StringVar(&opts.Features, "features", "", "Print the features of the stroke in FILE as GeoJSON")
	fs.StringVar(&opts.Render, "render", "", "Render the stroke in FILE with its key points")
	fs.StringVar(&opts.Output, "output", "", "Output file for -render (.svg or .png; default SVG to stdout)")
	fs.BoolVar(&opts.MqttMode, "mqtt", false, "Enable MQTT stroke subscription and gesture publishing")
	fs.BoolVar(&opts.HttpMode, "http", false, "Enable HTTP API server")
	fs.IntVar(&opts.HttpPort, "http-port", 4040, "HTTP server port")

	if err := fs.Parse(args); err != nil {
		return err
	}

	// A service with nothing enabled serves HTTP.
	if !opts.MqttMode && !opts.HttpMode {
		opts.HttpMode = true
	}

	app.ApplyOptions(opts)

	switch {
	case opts.List:
		return app.RunList()
	case opts.Learn != "":
		if opts.Input == "" {
			return fmt.Errorf("-learn requires -input")
		}
		return app.RunLearn(opts.Learn, opts.Input)
	case opts.Remove != "":
		return app.RunRemove(opts.Remove)
	case opts.Recognize != "":
		return app.RunRecognize(opts.Recognize)
	case opts.Match != "":
		if opts.Against == "" {
			return fmt.Errorf("-match requires -against")
		}
		return app.RunMatch(opts.Match, opts.Against)
	case opts.Features != "":
		return app.RunFeatures(opts.Features)
	case opts.Render != "":
		return app.RunRender(opts.Render, opts.Output)
	}

	fmt.Fprintf(out, "strokemesh version: %s\n", Version)
	fmt.Fprintln(out, "strokemesh service starting...")
	return app.RunService()
}

// Package main is the entry point for the luahost script runner.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.uber.org/zap"

	"github.com/dshills/luahost/internal/config"
	"github.com/dshills/luahost/internal/lua"
	"github.com/dshills/luahost/internal/watch"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	inline     string
	scriptPath string
	configPath string
	sets       []string
	async      bool
	watchMode  bool
	jsonOutput bool
	verbose    bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("luahost %s (%s) built %s\n", version, commit, date)
		return 0
	}
	if opts.inline == "" && opts.scriptPath == "" {
		fmt.Fprintln(os.Stderr, "Error: nothing to run (provide a script file or -e)")
		flag.Usage()
		return 2
	}

	log := zap.NewNop()
	if opts.verbose {
		var err error
		log, err = zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create logger: %v\n", err)
			return 1
		}
	}
	defer log.Sync() //nolint:errcheck // stderr sync failure is uninteresting
	lua.SetLogger(log)

	rt, err := newRuntime(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer rt.Close()

	if opts.watchMode {
		if opts.scriptPath == "" {
			fmt.Fprintln(os.Stderr, "Error: -watch requires a script file")
			return 2
		}
		return runWatch(rt, opts)
	}

	values, err := execute(rt, opts)
	return report(values, err, opts.jsonOutput)
}

// stringList collects repeatable flag values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseFlags() (options, bool) {
	var opts options
	var showVersion bool
	var sets stringList

	flag.StringVar(&opts.inline, "e", "", "Inline Lua code to execute")
	flag.StringVar(&opts.configPath, "config", "", "Path to TOML configuration file")
	flag.Var(&sets, "set", "Global preset as name=json (repeatable)")
	flag.BoolVar(&opts.async, "async", false, "Run off-thread with host callbacks disabled")
	flag.BoolVar(&opts.watchMode, "watch", false, "Re-execute the script file when it changes")
	flag.BoolVar(&opts.jsonOutput, "json", false, "Emit results as JSON")
	flag.BoolVar(&opts.verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	opts.sets = sets
	if flag.NArg() > 0 {
		opts.scriptPath = flag.Arg(0)
	}
	return opts, showVersion
}

// newRuntime builds a runtime from the config file and -set presets and
// registers the built-in host functions.
func newRuntime(opts options) (*lua.Runtime, error) {
	var rtOpts []lua.Option

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if cfg != nil && len(cfg.Libraries) > 0 {
		var set lua.LibrarySet
		for _, name := range cfg.Libraries {
			lib, err := lua.ParseLibrary(name)
			if err != nil {
				return nil, err
			}
			set = append(set, lib)
		}
		rtOpts = append(rtOpts, lua.WithLibraries(set))
	}

	rt, err := lua.New(rtOpts...)
	if err != nil {
		return nil, err
	}

	if cfg != nil {
		for name, v := range cfg.Globals {
			if err := rt.SetGlobal(name, v); err != nil {
				rt.Close()
				return nil, err
			}
		}
	}
	for _, def := range opts.sets {
		name, val, err := parseSet(def)
		if err != nil {
			rt.Close()
			return nil, err
		}
		if err := rt.SetGlobal(name, val); err != nil {
			rt.Close()
			return nil, err
		}
	}

	// host_log(...) lets scripts write through the host logger.
	logf := lua.Logger()
	err = rt.RegisterFunction("host_log", func(args []lua.Value) (lua.Value, error) {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.String()
		}
		logf.Info("script", zap.String("message", strings.Join(parts, " ")))
		return nil, nil
	})
	if err != nil {
		rt.Close()
		return nil, err
	}

	return rt, nil
}

// parseSet splits a name=json definition. Values that are not valid
// JSON are taken as literal strings.
func parseSet(def string) (string, lua.Value, error) {
	name, raw, ok := strings.Cut(def, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("invalid -set %q (want name=value)", def)
	}
	if !gjson.Valid(raw) {
		return name, lua.String(raw), nil
	}
	return name, jsonToValue(gjson.Parse(raw)), nil
}

// jsonToValue maps a parsed JSON value onto the bridge's value model.
func jsonToValue(res gjson.Result) lua.Value {
	switch {
	case res.Type == gjson.Null:
		return lua.NilValue
	case res.Type == gjson.False:
		return lua.Bool(false)
	case res.Type == gjson.True:
		return lua.Bool(true)
	case res.Type == gjson.Number:
		n := res.Num
		if n == float64(int64(n)) {
			return lua.Int(int64(n))
		}
		return lua.Float(n)
	case res.IsArray():
		items := res.Array()
		arr := make(lua.Array, len(items))
		for i, item := range items {
			arr[i] = jsonToValue(item)
		}
		return arr
	case res.IsObject():
		tbl := make(lua.Table)
		res.ForEach(func(key, value gjson.Result) bool {
			tbl[key.String()] = jsonToValue(value)
			return true
		})
		return tbl
	default:
		return lua.String(res.String())
	}
}

func execute(rt *lua.Runtime, opts options) ([]lua.Value, error) {
	if opts.async {
		var ch <-chan lua.ScriptResult
		var err error
		if opts.inline != "" {
			ch, err = rt.ExecuteScriptAsync(opts.inline)
		} else {
			ch, err = rt.ExecuteFileAsync(opts.scriptPath)
		}
		if err != nil {
			return nil, err
		}
		res := <-ch
		return res.Values, res.Err
	}
	if opts.inline != "" {
		return rt.ExecuteScript(opts.inline)
	}
	return rt.ExecuteFile(opts.scriptPath)
}

func runWatch(rt *lua.Runtime, opts options) int {
	w, err := watch.New(opts.scriptPath, watch.DefaultDebounce)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to watch %s: %v\n", opts.scriptPath, err)
		return 1
	}
	defer w.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	// Run once up front, then on every change.
	values, err := execute(rt, opts)
	report(values, err, opts.jsonOutput)

	for {
		select {
		case <-signals:
			return 0
		case err := <-w.Errors():
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)
		case <-w.Events():
			values, err := execute(rt, opts)
			report(values, err, opts.jsonOutput)
		}
	}
}

// report prints results or the failure and returns the exit code.
func report(values []lua.Value, err error, jsonOutput bool) int {
	if jsonOutput {
		fmt.Println(jsonReport(values, err))
		if err != nil {
			return 1
		}
		return 0
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, v := range values {
		fmt.Println(v.String())
	}
	return 0
}

// jsonReport builds the JSON result document.
func jsonReport(values []lua.Value, err error) string {
	doc := "{}"
	doc, _ = sjson.Set(doc, "ok", err == nil)
	if err != nil {
		doc, _ = sjson.Set(doc, "error", err.Error())
		return doc
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = jsonValue(v)
	}
	doc, _ = sjson.Set(doc, "values", out)
	return doc
}

// jsonValue maps a Value onto JSON-encodable Go data. Reference kinds
// have no JSON shape and render as their display strings.
func jsonValue(v lua.Value) any {
	switch val := v.(type) {
	case lua.Nil:
		return nil
	case lua.Bool:
		return bool(val)
	case lua.Int:
		return int64(val)
	case lua.Float:
		return float64(val)
	case lua.String:
		return string(val)
	case lua.Array:
		arr := make([]any, len(val))
		for i, item := range val {
			arr[i] = jsonValue(item)
		}
		return arr
	case lua.Table:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = jsonValue(item)
		}
		return m
	default:
		return v.String()
	}
}

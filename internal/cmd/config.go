package cmd

import (
	"strings"

	"github.com/mstoykov/envconfig"
	"github.com/spf13/pflag"
	null "gopkg.in/guregu/null.v3"

	"github.com/bundlemux/bundlemux/internal/upstream"
	"github.com/bundlemux/bundlemux/lib"
)

func serveFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.StringP("address", "a", "localhost:8080", "address for the combined-artifact server")
	flags.String("entry", "index", "logical bundle name, served as /{entry}.bundle")
	flags.String("runtime-url", "http://127.0.0.1:8081", "base URL of the runtime bundler")
	flags.String("runtime-code-path", "/bundle.js", "code path on the runtime bundler")
	flags.String("runtime-map-path", "/bundle.js.map", "source map path on the runtime bundler")
	flags.String("app-url", "http://127.0.0.1:8082", "base URL of the app bundler")
	flags.String("app-code-path", "/bundle.js", "code path on the app bundler")
	flags.String("app-map-path", "/bundle.js.map", "source map path on the app bundler")
	flags.String("runtime-cmd", "", "command that launches the runtime bundler, empty means externally managed")
	flags.String("app-cmd", "", "command that launches the app bundler, empty means externally managed")
	flags.Bool("hot", false, "run the app bundler in live-reload mode")
	flags.Bool("no-compress", false, "disable gzip encoding of combined responses")
	return flags
}

// Gets configuration from CLI flags. Only flags the user actually set come
// back valid, so layering with Apply keeps lower-priority values intact.
func getOptions(flags *pflag.FlagSet) lib.Options {
	opts := lib.Options{
		Address:         getNullString(flags, "address"),
		EntryName:       getNullString(flags, "entry"),
		RuntimeURL:      getNullString(flags, "runtime-url"),
		RuntimeCodePath: getNullString(flags, "runtime-code-path"),
		RuntimeMapPath:  getNullString(flags, "runtime-map-path"),
		AppURL:          getNullString(flags, "app-url"),
		AppCodePath:     getNullString(flags, "app-code-path"),
		AppMapPath:      getNullString(flags, "app-map-path"),
		RuntimeCommand:  getNullString(flags, "runtime-cmd"),
		AppCommand:      getNullString(flags, "app-cmd"),
		Hot:             getNullBool(flags, "hot"),
	}
	if noCompress := getNullBool(flags, "no-compress"); noCompress.Valid {
		opts.Compress = null.BoolFrom(!noCompress.Bool)
	}
	return opts
}

// Reads configuration variables from the environment.
func readEnvConfig() (lib.Options, error) {
	var opts lib.Options
	err := envconfig.Process("", &opts)
	return opts, err
}

func defaultOptions() lib.Options {
	return lib.Options{
		Address:         null.NewString("localhost:8080", false),
		EntryName:       null.NewString("index", false),
		RuntimeURL:      null.NewString("http://127.0.0.1:8081", false),
		RuntimeCodePath: null.NewString("/bundle.js", false),
		RuntimeMapPath:  null.NewString("/bundle.js.map", false),
		AppURL:          null.NewString("http://127.0.0.1:8082", false),
		AppCodePath:     null.NewString("/bundle.js", false),
		AppMapPath:      null.NewString("/bundle.js.map", false),
		Compress:        null.NewBool(true, false),
	}
}

// getConsolidatedConfig applies the configuration layers in order of
// precedence: defaults, then environment variables, then CLI flags.
func getConsolidatedConfig(flags *pflag.FlagSet) (lib.Options, error) {
	envOpts, err := readEnvConfig()
	if err != nil {
		return lib.Options{}, err
	}
	return defaultOptions().Apply(envOpts).Apply(getOptions(flags)), nil
}

// origins maps the consolidated options onto the two upstream descriptors.
func origins(opts lib.Options) (runtime, app upstream.Origin) {
	runtime = upstream.Origin{
		Name:     "runtime",
		BaseURL:  opts.RuntimeURL.String,
		CodePath: opts.RuntimeCodePath.String,
		MapPath:  opts.RuntimeMapPath.String,
	}
	app = upstream.Origin{
		Name:     "app",
		BaseURL:  opts.AppURL.String,
		CodePath: opts.AppCodePath.String,
		MapPath:  opts.AppMapPath.String,
	}
	return runtime, app
}

// commands maps the consolidated options onto the child process launch
// specs. Hot mode is forwarded to the app bundler's environment only.
func commands(opts lib.Options, runtime, app upstream.Origin) []upstream.Command {
	var appEnv []string
	if opts.Hot.Bool {
		appEnv = append(appEnv, "BUNDLEMUX_HOT=1")
	}
	return []upstream.Command{
		{Origin: runtime, Argv: strings.Fields(opts.RuntimeCommand.String)},
		{Origin: app, Argv: strings.Fields(opts.AppCommand.String), Env: appEnv},
	}
}

func getNullBool(flags *pflag.FlagSet, key string) null.Bool {
	v, err := flags.GetBool(key)
	if err != nil {
		panic(err)
	}
	return null.NewBool(v, flags.Changed(key))
}

func getNullString(flags *pflag.FlagSet, key string) null.String {
	v, err := flags.GetString(key)
	if err != nil {
		panic(err)
	}
	return null.NewString(v, flags.Changed(key))
}

// Package lib holds the process-wide configuration model of bundlemux.
package lib

import (
	"fmt"
	"strings"

	"gopkg.in/guregu/null.v3"
)

// Options is the full set of tunables for a bundlemux run. All fields are
// nullable so that layered configuration (defaults, environment variables,
// CLI flags) can tell "unset" apart from "set to the zero value"; see Apply.
//
// Options are consolidated once at startup and are immutable afterwards; no
// component mutates them while the server is running.
type Options struct {
	// Address the combined-artifact server listens on.
	Address null.String `json:"address" envconfig:"BUNDLEMUX_ADDRESS"`

	// EntryName is the logical bundle name. The server answers
	// GET /{entry}.bundle and GET /{entry}.map, and nothing else.
	EntryName null.String `json:"entryName" envconfig:"BUNDLEMUX_ENTRY_NAME"`

	// The runtime bundler (upstream A) produces the entry runtime; its
	// payload is always spliced first. The order is part of the output
	// contract, not an implementation detail.
	RuntimeURL      null.String `json:"runtimeUrl" envconfig:"BUNDLEMUX_RUNTIME_URL"`
	RuntimeCodePath null.String `json:"runtimeCodePath" envconfig:"BUNDLEMUX_RUNTIME_CODE_PATH"`
	RuntimeMapPath  null.String `json:"runtimeMapPath" envconfig:"BUNDLEMUX_RUNTIME_MAP_PATH"`

	// The app bundler (upstream B) produces the application code, spliced
	// after the runtime.
	AppURL      null.String `json:"appUrl" envconfig:"BUNDLEMUX_APP_URL"`
	AppCodePath null.String `json:"appCodePath" envconfig:"BUNDLEMUX_APP_CODE_PATH"`
	AppMapPath  null.String `json:"appMapPath" envconfig:"BUNDLEMUX_APP_MAP_PATH"`

	// Command lines that launch the two bundlers as child processes. An
	// empty command means the upstream is managed externally and bundlemux
	// only waits for it to become reachable.
	RuntimeCommand null.String `json:"runtimeCommand" envconfig:"BUNDLEMUX_RUNTIME_CMD"`
	AppCommand     null.String `json:"appCommand" envconfig:"BUNDLEMUX_APP_CMD"`

	// Hot runs the app bundler in live-reload mode. It is forwarded to the
	// bundler's environment only; the aggregation core is unaffected.
	Hot null.Bool `json:"hot" envconfig:"BUNDLEMUX_HOT"`

	// Compress enables gzip encoding of combined responses.
	Compress null.Bool `json:"compress" envconfig:"BUNDLEMUX_COMPRESS"`
}

// Apply overlays opts on top of o, field by field, keeping o's value wherever
// opts leaves a field unset. Neither receiver nor argument is modified.
func (o Options) Apply(opts Options) Options {
	if opts.Address.Valid {
		o.Address = opts.Address
	}
	if opts.EntryName.Valid {
		o.EntryName = opts.EntryName
	}
	if opts.RuntimeURL.Valid {
		o.RuntimeURL = opts.RuntimeURL
	}
	if opts.RuntimeCodePath.Valid {
		o.RuntimeCodePath = opts.RuntimeCodePath
	}
	if opts.RuntimeMapPath.Valid {
		o.RuntimeMapPath = opts.RuntimeMapPath
	}
	if opts.AppURL.Valid {
		o.AppURL = opts.AppURL
	}
	if opts.AppCodePath.Valid {
		o.AppCodePath = opts.AppCodePath
	}
	if opts.AppMapPath.Valid {
		o.AppMapPath = opts.AppMapPath
	}
	if opts.RuntimeCommand.Valid {
		o.RuntimeCommand = opts.RuntimeCommand
	}
	if opts.AppCommand.Valid {
		o.AppCommand = opts.AppCommand
	}
	if opts.Hot.Valid {
		o.Hot = opts.Hot
	}
	if opts.Compress.Valid {
		o.Compress = opts.Compress
	}
	return o
}

// Validate checks the consolidated options for values no run can work with.
func (o Options) Validate() []error {
	var errs []error
	if o.EntryName.String == "" {
		errs = append(errs, fmt.Errorf("entry name cannot be empty"))
	} else if strings.ContainsAny(o.EntryName.String, "/?#") {
		errs = append(errs, fmt.Errorf("entry name %q cannot contain '/', '?' or '#'", o.EntryName.String))
	}
	for _, up := range []struct{ name, url string }{
		{"runtime", o.RuntimeURL.String},
		{"app", o.AppURL.String},
	} {
		if up.url == "" {
			errs = append(errs, fmt.Errorf("%s upstream URL cannot be empty", up.name))
			continue
		}
		if !strings.HasPrefix(up.url, "http://") && !strings.HasPrefix(up.url, "https://") {
			errs = append(errs, fmt.Errorf("%s upstream URL %q must be http(s)", up.name, up.url))
		}
	}
	return errs
}

//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-flow-go/debugserver"
	"trpc.group/trpc-go/trpc-flow-go/flow"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

type runOptions struct {
	graphDefPaths     []string
	templatePaths     []string
	inputsPath        string
	echoInputs        bool
	echoTemplates     bool
	logUndefinedPaths bool
	logLiterals       bool
	logLevel          string
	timeout           time.Duration
	debugAddr         string
}

func newRootCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "flowcalc --graph-definitions <file>... [--inputs <file>]",
		Short: "Evaluate a flow graph definition against a set of inputs",
		Long: `flowcalc loads one or more JSON graph definitions, runs the first one
against the supplied inputs, and prints the resolved state. Additional
definition files are embedded as subgraph nodes named after their file;
template files are embedded the same way but never executed in place.
Definition and input files may contain comments (JSONC); inputs may also
be YAML.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return evaluate(cmd, opts)
		},
	}
	registerFlags(cmd.Flags(), opts)
	_ = cmd.MarkFlagRequired("graph-definitions")
	return cmd
}

func registerFlags(f *pflag.FlagSet, opts *runOptions) {
	f.StringSliceVar(&opts.graphDefPaths, "graph-definitions", nil,
		"graph definition files; the first is the top-level graph")
	f.StringSliceVar(&opts.templatePaths, "templates", nil,
		"template graph definition files, embedded with isTemplate")
	f.StringVar(&opts.inputsPath, "inputs", "", "inputs file (JSON or YAML)")
	f.BoolVar(&opts.echoInputs, "echo-inputs", false, "include input values in the output state")
	f.BoolVar(&opts.echoTemplates, "echo-templates", false, "include template nodes in the output state")
	f.BoolVar(&opts.logUndefinedPaths, "log-undefined-paths", false, "log unresolved paths on each step")
	f.BoolVar(&opts.logLiterals, "log-literals", false, "log fields interpreted as literals")
	f.StringVar(&opts.logLevel, "log-level", log.LevelInfo, "log level (debug, info, warn, error, fatal)")
	f.DurationVar(&opts.timeout, "timeout", 0, "abort the run after this duration (0 = no timeout)")
	f.StringVar(&opts.debugAddr, "debug-addr", "", "serve the debug API on this address while running")
}

func evaluate(cmd *cobra.Command, opts *runOptions) error {
	log.SetLevel(opts.logLevel)

	def, err := assembleDefinition(opts)
	if err != nil {
		return err
	}
	inputs := map[string]any{}
	if opts.inputsPath != "" {
		if inputs, err = loadInputs(opts.inputsPath); err != nil {
			return err
		}
	}

	g, err := flow.New(def,
		flow.WithName(graphName(opts.graphDefPaths[0])),
		flow.WithOptions(flow.Options{
			EchoInputs:        opts.echoInputs,
			EchoTemplates:     opts.echoTemplates,
			LogUndefinedPaths: opts.logUndefinedPaths,
			LogLiterals:       opts.logLiterals,
			RunTimeout:        opts.timeout,
		}))
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	ctx := cmd.Context()
	if opts.debugAddr != "" {
		srv := debugserver.New(g, debugserver.WithAddress(opts.debugAddr))
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				log.Errorf("debug server: %v", err)
			}
		}()
	}

	state, err := g.Run(ctx, inputs)
	if err != nil {
		return fmt.Errorf("run graph: %w", err)
	}
	out, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

// assembleDefinition loads the top-level graph and embeds every further
// definition and template file as a subgraph node named after its file.
func assembleDefinition(opts *runOptions) (flow.GraphDef, error) {
	if len(opts.graphDefPaths) == 0 {
		return nil, fmt.Errorf("at least one graph definition is required")
	}
	def, err := loadDefinition(opts.graphDefPaths[0])
	if err != nil {
		return nil, err
	}
	for _, path := range opts.graphDefPaths[1:] {
		child, err := loadDefinition(path)
		if err != nil {
			return nil, err
		}
		def = append(def, flow.NodeDecl{
			"name":     graphName(path),
			"type":     flow.KindGraph,
			"graphDef": child,
		})
	}
	for _, path := range opts.templatePaths {
		tmpl, err := loadDefinition(path)
		if err != nil {
			return nil, err
		}
		def = append(def, flow.NodeDecl{
			"name":       graphName(path),
			"type":       flow.KindGraph,
			"graphDef":   tmpl,
			"isTemplate": true,
		})
	}
	return def, nil
}

func loadDefinition(path string) (flow.GraphDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	def, err := flow.ParseGraphDef(jsonc.ToJSON(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

func loadInputs(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	inputs := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &inputs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(jsonc.ToJSON(data), &inputs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return inputs, nil
}

// graphName derives a node/graph name from a file path: base name, no
// extension.
func graphName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

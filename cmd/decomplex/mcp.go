package main

import (
	"fmt"

	"github.com/panbanda/decomplex/internal/mcpserver"
	"github.com/urfave/cli/v2"
)

func mcpCmd() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Start MCP (Model Context Protocol) server for LLM tool integration",
		Description: `Starts an MCP server over stdio transport that exposes complexity
analysis and the recorded history as tools that LLMs can invoke.

To use with Claude Desktop, add to your config:
  {
    "mcpServers": {
      "decomplex": {
        "command": "decomplex",
        "args": ["mcp"]
      }
    }
  }

Available tools:
  - analyze_complexity   Score files without recording the run
  - complexity_report    Latest stored run, optionally with changes
  - complexity_trend     Per-file totals and regression across runs`,
		Action: runMCPCmd,
		Subcommands: []*cli.Command{
			{
				Name:   "manifest",
				Usage:  "Print the MCP registry server.json manifest",
				Action: runMCPManifestCmd,
			},
		},
	}
}

func runMCPCmd(c *cli.Context) error {
	return mcpserver.NewServer(version, getConfig(c)).Run(c.Context)
}

func runMCPManifestCmd(c *cli.Context) error {
	data, err := mcpserver.GenerateManifest(version)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

/*
Copyright 2018 Craig Johnston <cjimti@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/txn2/keybusfwd/cmd/keybusfwd/bridge"
	"github.com/txn2/keybusfwd/cmd/keybusfwd/mcp"
	"github.com/txn2/keybusfwd/cmd/keybusfwd/version"
)

var globalUsage = `Bridge a security panel Keybus to a single telnet client.

Decoded panel and module traffic is written to the client one line per
event, and every byte the client types is written back to the bus as a
virtual keypad keystroke. Running keybusfwd without a subcommand starts
the bridge.`

var Version = "0.0.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keybusfwd",
		Short:   "Bridge a Keybus to a telnet client.",
		Long:    globalUsage,
		Example: bridge.Cmd.Example,
		Run:     bridge.Cmd.Run,
	}
	cmd.Flags().AddFlagSet(bridge.Cmd.Flags())

	cmd.AddCommand(version.Cmd, bridge.Cmd, mcp.Cmd)

	return cmd
}

func main() {
	version.Version = Version
	bridge.Version = Version
	mcp.Version = Version

	cmd := newRootCmd()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

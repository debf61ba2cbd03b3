package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ValentinKolb/xdb/cmd/db"
	"github.com/ValentinKolb/xdb/cmd/server"
	"github.com/ValentinKolb/xdb/cmd/session"
	"github.com/ValentinKolb/xdb/cmd/util"
	"github.com/ValentinKolb/xdb/lib/lifecycle"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "xdb",
		Short: "embedded object store",
		Long: fmt.Sprintf(`xdb (v%s)

An embedded, file-backed object store written in Go. Records are kept in
memory, indexed by an optional primary key and saved as one compressed
snapshot file in the background.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of xdb",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("xdb v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(db.DBCommands)
	RootCmd.AddCommand(session.SessionCommands)
	RootCmd.AddCommand(server.ServerCommands)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
// Every store opened by a command is stopped (and saved) before Execute returns.
func Execute() {
	stores := lifecycle.NewManager()

	err := RootCmd.ExecuteContext(util.WithStores(context.Background(), stores))
	if stopErr := stores.StopAll(); stopErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", stopErr)
		err = stopErr
	}
	if err != nil {
		os.Exit(1)
	}
}

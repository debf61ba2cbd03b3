package server

import (
	"fmt"

	"github.com/ValentinKolb/xdb/cmd/util"
	"github.com/ValentinKolb/xdb/lib/registry"
	"github.com/spf13/cobra"
)

var (
	servers *registry.Registry
	newSrv  registry.Server

	// ServerCommands represents the server list command group
	ServerCommands = &cobra.Command{
		Use:               "server",
		Short:             "Manage the server list",
		PersistentPreRunE: setupRegistry,
	}

	addCmd = &cobra.Command{
		Use:   "add",
		Short: "Adds a server and prints its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := servers.Add(newSrv)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	listCmd = &cobra.Command{
		Use:   "list",
		Short: "Lists all servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := servers.List()
			if err != nil {
				return err
			}
			for _, s := range list {
				fmt.Printf("%s  %-20s %-12s %s:%d\n", s.ID, s.Label, s.Node, s.IP, s.Port)
			}
			return nil
		},
	}
	updateCmd = &cobra.Command{
		Use:   "update [id] [field] [value]",
		Short: "Sets one field (label, node, ip, port, accessKey) of a server",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := servers.Update(args[0], args[1], util.ParseValue(args[2]))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("server %s not found", args[0])
			}
			fmt.Println("ok")
			return nil
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [id]",
		Short: "Removes a server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := servers.Remove(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("id=%s, removed=%t\n", args[0], ok)
			return nil
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add store flags
	util.SetupStoreFlags(ServerCommands, "data/servers")

	// Add subcommands
	ServerCommands.AddCommand(addCmd)
	ServerCommands.AddCommand(listCmd)
	ServerCommands.AddCommand(updateCmd)
	ServerCommands.AddCommand(rmCmd)

	// Add flags for add command
	addCmd.Flags().StringVar(&newSrv.Label, "label", "", util.WrapString("Label of the server (max 128 chars)"))
	addCmd.Flags().StringVar(&newSrv.Node, "node", "", util.WrapString("Node label (max 40 chars)"))
	addCmd.Flags().StringVar(&newSrv.IP, "ip", "", util.WrapString("IP address of the server"))
	addCmd.Flags().IntVar(&newSrv.Port, "port", 0, util.WrapString("Port of the server (1-65535)"))
	addCmd.Flags().StringVar(&newSrv.AccessKey, "access-key", "", util.WrapString("Access key of the server"))
	_ = addCmd.MarkFlagRequired("ip")
	_ = addCmd.MarkFlagRequired("port")
}

// setupRegistry opens the server list
func setupRegistry(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	conf := util.GetStoreConfig()
	opts, err := util.StoreOptions(conf)
	if err != nil {
		return err
	}

	servers, err = registry.Open(conf.Path, opts)
	if err != nil {
		return err
	}
	if err := util.Register(cmd, "servers", servers.Store()); err != nil {
		_ = servers.Close()
		return err
	}
	return nil
}

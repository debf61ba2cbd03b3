package db

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/xdb/cmd/util"
	"github.com/ValentinKolb/xdb/lib/record"
	"github.com/VictoriaMetrics/metrics"
	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	findAll        bool
	processMetrics bool

	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints the configuration and state of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := objStore.Info()
			if err != nil {
				return err
			}
			b, err := gojson.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Print(conf.String())
			fmt.Printf("\nSTATE\n%s\n", b)
			return nil
		},
	}
	dumpCmd = &cobra.Command{
		Use:   "dump",
		Short: "Prints all records as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := objStore.Filter(nil)
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	createCmd = &cobra.Command{
		Use:   "create [name=value]...",
		Short: "Creates a record and prints its id",
		Long:  "Creates a record. Values are parsed as JSON, anything that is not valid JSON is stored as string.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := util.ParseFields(args)
			if err != nil {
				return err
			}
			id, err := objStore.Create(fields...)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [id]",
		Short: "Reads the record with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok, err := objStore.GetByID(args[0])
			return printResult(r, ok, err)
		},
	}
	getKeyCmd = &cobra.Command{
		Use:   "get-key [key]",
		Short: "Reads the record with the given primary-key value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok, err := objStore.GetByKey(util.ParseValue(args[0]))
			return printResult(r, ok, err)
		},
	}
	findCmd = &cobra.Command{
		Use:   "find [field] [value]",
		Short: "Finds records by the value of a field",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, value := args[0], util.ParseValue(args[1])
			if !findAll {
				r, ok, err := objStore.GetByProperty(field, value)
				return printResult(r, ok, err)
			}
			records, err := objStore.Filter(func(r *record.Record) bool {
				v, ok := r.Get(field)
				return ok && v.Equal(value)
			})
			if err != nil {
				return err
			}
			return printRecords(records)
		},
	}
	setCmd = &cobra.Command{
		Use:   "set [id] [field] [value]",
		Short: "Sets one field of the record with the given id",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := objStore.SetByID(args[0], args[1], util.ParseValue(args[2]))
			return printUpdated(ok, err)
		},
	}
	setKeyCmd = &cobra.Command{
		Use:   "set-key [key] [field] [value]",
		Short: "Sets one field of the record with the given primary-key value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := objStore.SetByKey(util.ParseValue(args[0]), args[1], util.ParseValue(args[2]))
			return printUpdated(ok, err)
		},
	}
	rmCmd = &cobra.Command{
		Use:   "rm [id]",
		Short: "Removes the record with the given id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := objStore.RemoveByID(args[0])
			return printUpdated(ok, err)
		},
	}
	rmKeyCmd = &cobra.Command{
		Use:   "rm-key [key]",
		Short: "Removes the record with the given primary-key value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := objStore.RemoveByKey(util.ParseValue(args[0]))
			return printUpdated(ok, err)
		},
	}
	metricsCmd = &cobra.Command{
		Use:   "metrics",
		Short: "Prints the metrics of the store in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := objStore.Flush(); err != nil {
				return err
			}
			objStore.WritePrometheus(os.Stdout)
			if processMetrics {
				metrics.WriteProcessMetrics(os.Stdout)
			}
			return nil
		},
	}
)

func init() {
	findCmd.Flags().BoolVar(&findAll, "all", false, util.WrapString("Print every matching record instead of the first one"))
	metricsCmd.Flags().BoolVar(&processMetrics, "process", false, util.WrapString("Include Go runtime and process metrics"))
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

func printRecords(records []*record.Record) error {
	for _, r := range records {
		line, err := util.FormatRecord(r)
		if err != nil {
			return err
		}
		fmt.Println(line)
	}
	return nil
}

func printResult(r *record.Record, found bool, err error) error {
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("not found")
	}
	return printRecords([]*record.Record{r})
}

func printUpdated(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("not found")
	}
	fmt.Println("ok")
	return nil
}

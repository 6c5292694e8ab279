package cli

import (
	"fmt"

	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/services"
	"github.com/spf13/cobra"
)

func newEquipmentCommand(rt *runtime) *cobra.Command {
	equipment := &cobra.Command{Use: "equipment", Short: "Manage equipment of an asset"}

	var (
		req       services.CreateEquipmentRequest
		installed string
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Add an equipment to an asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			if req.Installation, err = parseDate("installed", installed); err != nil {
				return err
			}
			eq, err := rt.app.Equipments.Create(cmd.Context(), userID, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, eq.UIID)
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&req.AssetUIID, "asset", "", "asset ID")
	f.StringVar(&req.Name, "name", "", "equipment name")
	f.StringVar(&req.Brand, "brand", "", "brand")
	f.StringVar(&req.Model, "model", "", "model")
	f.StringVar(&req.AgeAcquisitionType, "age-type", string(models.AgeAcquisitionManualEntry), "age source: time, manualEntry or tracker")
	f.IntVar(&req.Age, "age", 0, "current age in hours")
	f.StringVar(&installed, "installed", "", "installation date, "+dateLayout)

	var hours int
	age := &cobra.Command{
		Use:   "age <equipment>",
		Short: "Record the current hour meter reading",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			_, err = rt.app.Equipments.UpdateAge(cmd.Context(), userID, args[0], hours)
			return err
		},
	}
	age.Flags().IntVar(&hours, "hours", 0, "hours of use")

	del := &cobra.Command{
		Use:   "delete <equipment>",
		Short: "Delete an equipment with its tasks, entries and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			report, err := rt.app.Equipments.Delete(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			printReport(rt.out, report)
			return nil
		},
	}

	equipment.AddCommand(add, age, del)
	return equipment
}

func newTasksCommand(rt *runtime) *cobra.Command {
	tasks := &cobra.Command{Use: "tasks", Short: "Manage maintenance tasks"}

	var req services.CreateTaskRequest
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a recurring task to an equipment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			v, err := rt.app.Tasks.Create(cmd.Context(), userID, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(rt.out, "%s\t%s\n", v.Task.UIID, v.Status.Level)
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&req.EquipmentUIID, "equipment", "", "equipment ID")
	f.StringVar(&req.Name, "name", "", "task name")
	f.StringVar(&req.Description, "description", "", "description")
	f.IntVar(&req.UsagePeriodInHour, "every-hours", models.UsageNotTracked, "usage period in hours, -1 when not tracked")
	f.IntVar(&req.PeriodInMonth, "every-months", 12, "calendar period in months")

	tasks.AddCommand(add)
	return tasks
}

func newEntriesCommand(rt *runtime) *cobra.Command {
	entries := &cobra.Command{Use: "entries", Short: "Log performed maintenance"}

	var (
		req         services.CreateEntryRequest
		date        string
		provisional bool
	)
	add := &cobra.Command{
		Use:   "add",
		Short: "Log a service entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			if req.Date, err = parseDate("date", date); err != nil {
				return err
			}
			ack := !provisional
			req.Ack = &ack

			e, err := rt.app.Entries.Create(cmd.Context(), userID, req)
			if err != nil {
				return err
			}
			fmt.Fprintln(rt.out, e.UIID)
			return nil
		},
	}
	f := add.Flags()
	f.StringVar(&req.EquipmentUIID, "equipment", "", "equipment ID")
	f.StringVar(&req.TaskUIID, "task", "", "task ID, empty for a free entry")
	f.StringVar(&req.Name, "name", "", "entry name")
	f.StringVar(&date, "date", "", "service date, "+dateLayout)
	f.IntVar(&req.Age, "age", 0, "equipment age at service, hours")
	f.StringVar(&req.Remarks, "remarks", "", "remarks")
	f.BoolVar(&provisional, "provisional", false, "log without acknowledging")

	ack := &cobra.Command{
		Use:   "ack <entry>",
		Short: "Acknowledge a provisional entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			_, err = rt.app.Entries.Acknowledge(cmd.Context(), userID, args[0])
			return err
		},
	}

	entries.AddCommand(add, ack)
	return entries
}

func newStatusCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status <asset>",
		Short: "Show the maintenance status of every equipment of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := rt.principal(cmd.Context())
			if err != nil {
				return err
			}
			st, err := rt.app.Tasks.AssetStatus(cmd.Context(), userID, args[0])
			if err != nil {
				return err
			}
			return printStatus(rt.out, st, rt.app.Now())
		},
	}
}

package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dmitrijs2005/equipkeeper/internal/common"
	"github.com/dmitrijs2005/equipkeeper/internal/server/cascade"
	"github.com/dmitrijs2005/equipkeeper/internal/server/maintenance"
	"github.com/dmitrijs2005/equipkeeper/internal/server/models"
	"github.com/dmitrijs2005/equipkeeper/internal/server/services"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const dateLayout = "2006-01-02"

func parseDate(flag, s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, common.Validationf("--%s must be a date like %s", flag, dateLayout)
	}
	return t, nil
}

func parseOptionalDate(flag, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return parseDate(flag, s)
}

// contentType sniffs the file header; empty means unknown.
func contentType(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return m.String()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printAssets(w io.Writer, userID string, assets []*models.Asset) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tBRAND\tMODEL\tACCESS")
	for _, a := range assets {
		access := "shared"
		if a.UserID == userID {
			access = "owner"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", a.UIID, a.Name, a.Brand, a.Model, access)
	}
	return tw.Flush()
}

func printReport(w io.Writer, r *services.CascadeReport) {
	parts := make([]string, 0, len(cascade.Kinds))
	for _, k := range cascade.Kinds {
		if n := r.Deleted[k]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	fmt.Fprintf(w, "deleted %s: %s\n", r.Root, strings.Join(parts, ", "))
}

// printStatus writes one line per equipment followed by its tasks.
func printStatus(w io.Writer, status []models.EquipmentStatus, now time.Time) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tLEVEL\tNEXT DUE\tHOURS LEFT")
	for _, st := range status {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\t\n", st.Equipment.UIID, st.Equipment.Name, levelName(st.Level, len(st.Tasks)))
		for _, v := range st.Tasks {
			due := v.Status.NextDueDate
			left := "-"
			if maintenance.UsageTracked(v.Task, st.Equipment) {
				left = humanize.Comma(int64(v.Status.UsageInHourLeft))
			}
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s (%s)\t%s\n",
				v.Task.UIID, v.Task.Name, v.Status.Level,
				due.Format(dateLayout), humanize.RelTime(due, now, "ago", "from now"), left)
		}
	}
	return tw.Flush()
}

func levelName(l models.Level, tasks int) string {
	if tasks == 0 {
		return "no tasks"
	}
	return l.String()
}

package reporter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"jamf_metrics/internal/domain"
)

// Console renders a report as text tables, groups in the order the run
// resolved them.
type Console struct {
	out io.Writer
}

func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Render(report *domain.Report, osReport *domain.OSReport) error {
	table := tablewriter.NewWriter(c.out)
	table.SetHeader([]string{"Smart Group", "Devices"})
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, r := range report.Results {
		table.Append([]string{r.Name, strconv.Itoa(r.Count)})
	}

	table.SetFooter([]string{"Total", strconv.Itoa(report.Total)})
	table.Render()

	if osReport == nil {
		return nil
	}

	fmt.Fprintln(c.out)

	versions := tablewriter.NewWriter(c.out)
	versions.SetHeader([]string{"OS Version", "Devices"})
	versions.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, v := range osReport.Versions {
		versions.Append([]string{v.Version, strconv.Itoa(v.Count)})
	}

	versions.SetFooter([]string{"Total", strconv.Itoa(osReport.Total)})
	versions.Render()

	return nil
}

package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"

	"github.com/spaghettifunk/vengine/engine/core"
	"github.com/spaghettifunk/vengine/engine/platform"
	"github.com/spaghettifunk/vengine/engine/renderer/vulkan"
)

// ListDevices prints every Vulkan physical device and whether it can run the
// ray tracing pipeline.
func ListDevices(ctx *cli.Context) error {
	setupLogging(ctx, core.InfoLevel.String())

	p := platform.New()
	if err := p.Init(); err != nil {
		return err
	}
	defer p.Shutdown()

	devices, err := vulkan.ListDevices(p, "vengine")
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Device", "Type", "API", "Driver", "Local memory", "NV ray tracing", "Handle size", "Max recursion"})
	for _, d := range devices {
		table.Append([]string{
			d.Name,
			d.Type,
			d.APIVersion,
			d.DriverVersion,
			fmt.Sprintf("%.2f GiB", d.LocalMemoryGiB),
			fmt.Sprintf("%t", d.RayTracing),
			fmt.Sprintf("%d", d.ShaderGroupHandleSize),
			fmt.Sprintf("%d", d.MaxRecursionDepth),
		})
	}
	table.Render()
	fmt.Fprint(ctx.App.Writer, buf.String())
	return nil
}

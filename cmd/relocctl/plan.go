package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vmware/esx-boot-sub001/reloc"
)

var planCmd = &cobra.Command{
	Use:   "plan <scenario.json>",
	Short: "Run the planner and print the resolved relocation table",
	Long: `Runs address assignment, dependency resolution, and carrier packaging
over the scenario, then prints the relocation table in execution order
together with resolution statistics. The moves themselves are not
performed; use "simulate" for that.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

type planReport struct {
	KernelEntry uint64             `json:"kernelEntry"`
	TableAddr   uint64             `json:"tableAddr"`
	MoverEntry  uint64             `json:"moverEntry"`
	Magic       uint32             `json:"magic"`
	Moves       int                `json:"recordsReordered"`
	Cycles      int                `json:"cyclesBroken"`
	Staged      int                `json:"sourcesStaged"`
	Entries     []reloc.TableEntry `json:"entries"`
}

func runPlan(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args[0])
	if err != nil {
		return err
	}
	img, err := sc.openImage("")
	if err != nil {
		return err
	}
	defer img.Close()

	p, mm, err := sc.build(img)
	if err != nil {
		return err
	}
	exe, err := p.Finalize(nil)
	if err != nil {
		return err
	}

	for _, r := range mm.Describe() {
		printVerbose("memory [%#x, +%#x) %s\n", r.Start, r.Size, r.Kind)
	}

	entries, err := exe.Table()
	if err != nil {
		return err
	}
	h := exe.Handoff()
	stats := exe.Stats()

	if jsonOut {
		return printJSON(planReport{
			KernelEntry: h.KernelEntry,
			TableAddr:   h.TableAddr,
			MoverEntry:  h.MoverEntry,
			Magic:       h.Magic,
			Moves:       stats.Moves,
			Cycles:      stats.Cycles,
			Staged:      stats.Staged,
			Entries:     entries,
		})
	}

	printInfo("kernel entry  %#x\n", h.KernelEntry)
	printInfo("table         %#x\n", h.TableAddr)
	printInfo("mover entry   %#x\n", h.MoverEntry)
	printInfo("protocol      %#x\n", h.Magic)
	printInfo("resolution    %d reordered, %d cycles, %d staged\n",
		stats.Moves, stats.Cycles, stats.Staged)
	printInfo("%-4s %-18s %-18s %-12s %s\n", "#", "DEST", "SRC", "SIZE", "FLAGS")
	for i, e := range entries {
		flags := ""
		if e.ZeroFill {
			flags += "Z"
		}
		if e.Executable {
			flags += "X"
		}
		src := fmt.Sprintf("%#x", e.Src)
		if e.ZeroFill {
			src = "-"
		}
		printInfo("%-4d %#-18x %-18s %#-12x %s\n", i, e.Dest, src, e.Size, flags)
	}
	return nil
}

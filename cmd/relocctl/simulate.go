package main

import (
	"github.com/spf13/cobra"
)

var simImagePath string

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.json>",
	Short: "Plan and then execute the moves over a simulated memory image",
	Long: `Runs the full pipeline, then simulates the post-shutdown jump to the
mover: every move and zero-fill in the resolved table is performed over
the memory image. With --image the image is a dump file mutated in
place (and synced on success); otherwise an anonymous zeroed image is
used, which is only useful for checking that execution succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().StringVar(&simImagePath, "image", "", "Memory dump file backing the simulated image")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	sc, err := loadScenario(args[0])
	if err != nil {
		return err
	}
	img, err := sc.openImage(simImagePath)
	if err != nil {
		return err
	}
	defer img.Close()

	p, _, err := sc.build(img)
	if err != nil {
		return err
	}
	exe, err := p.Finalize(nil)
	if err != nil {
		return err
	}

	printVerbose("planned, executing %d-entry table\n", len(sc.Objects))
	if err := exe.Run(nil); err != nil {
		return err
	}
	if err := img.Sync(); err != nil {
		return err
	}

	h := exe.Handoff()
	printInfo("moved; control would transfer to mover %#x, kernel %#x (magic %#x)\n",
		h.MoverEntry, h.KernelEntry, h.Magic)
	return nil
}

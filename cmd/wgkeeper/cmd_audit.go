package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Check peer records against the live server",
	Long: `Compare the peer store, the interface config and the live interface,
and report any drift: peers missing from one of the three, address
mismatches, and orphaned client configs. Report-only; nothing is
changed.`,
	RunE: runAudit,
}

func runAudit(cmd *cobra.Command, args []string) error {
	if err := requireRoot(); err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, err := newManager(cfg)
	if err != nil {
		return err
	}

	rep, err := mgr.Audit(cmd.Context())
	if err != nil {
		return err
	}
	if rep.Clean() {
		fmt.Println(styleActive.Render("Audit clean: records, interface file and live server agree."))
		return nil
	}
	fmt.Fprintln(os.Stdout, styleProblem.Render("Audit found drift:"))
	fmt.Fprintln(os.Stdout, rep.String())
	return nil
}

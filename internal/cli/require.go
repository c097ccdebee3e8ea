package cli

import (
	"context"
	"fmt"

	"github.com/arthur-debert/dataprov/pkg/errors"
	"github.com/arthur-debert/dataprov/pkg/ui"
	"github.com/spf13/cobra"
)

func newRequireCmd(a *app) *cobra.Command {
	var (
		roots     rootFlags
		checkHash bool
	)

	cmd := &cobra.Command{
		Use:   "require <dataset>",
		Short: "Make a dataset available locally",
		Long: `Require resolves the dataset through its tiers, cheapest first: built,
packed locally, packed in the cloud, downloaded sources, remote sources.
It stops at the first tier that is available and verified.

<dataset> is a catalog name or the path of a dataset spec file (.yaml).`,
		Example: `  # Provision a catalog dataset
  dataprov require europarl-v7-fr-en

  # Provision into a specific directory without verifying hashes
  dataprov require europarl-v7-fr-en --root /scratch/europarl --check-hash=false`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd, args[0], roots)
			if err != nil {
				return err
			}
			tier, err := d.Require(ctx, checkHash)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.OK(d.Name()+" is available at "+d.Root()),
				ui.Muted("(resolved from "+tier.String()+")"))
			return nil
		}),
	}

	roots.bind(cmd, "root", "cloud-root")
	cmd.Flags().BoolVar(&checkHash, "check-hash", true, "verify hashes of every artifact used")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var (
		roots     rootFlags
		checkHash bool
	)

	cmd := &cobra.Command{
		Use:   "upload <dataset>",
		Short: "Upload a dataset's pack to cloud storage",
		Long: `Upload saves the dataset's pack to its cloud root. When the dataset is built
but not packed it is packed first. A dataset that is neither built nor
packed cannot be uploaded; run require first.`,
		Example: `  dataprov upload europarl-v7-fr-en
  dataprov upload ./my-dataset.yaml --source-path ./data --target-uri gs://bucket/my-dataset`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(ctx context.Context, cmd *cobra.Command, args []string) error {
			d, err := a.open(cmd, args[0], roots)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			packed, err := d.PackReady(checkHash)
			if err != nil {
				return err
			}
			if !packed {
				built, err := d.BuildReady(checkHash)
				if err != nil {
					return err
				}
				if !built {
					return errors.Newf(errors.ErrPackNotReady,
						"there is no built or packed version of %s at %s, run `dataprov require` first", d.Name(), d.Root()).
						WithDetail("path", d.Root())
				}
				fmt.Fprintln(out, ui.Muted("Found no pack but a built dataset, packing..."))
				if err := d.Pack(ctx, checkHash); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(out, ui.Muted("Found packed version, uploading..."))
			}

			if err := d.UploadPack(ctx, checkHash); err != nil {
				return err
			}
			fmt.Fprintln(out, ui.OK("Uploaded "+d.Name()+" to "+d.CloudRoot()))
			return nil
		}),
	}

	roots.bind(cmd, "source-path", "target-uri")
	cmd.Flags().BoolVar(&checkHash, "check-hash", true, "verify pack hashes before uploading")
	return cmd
}

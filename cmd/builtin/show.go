package builtin

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/mwantia/metacat/catalog"
	"github.com/mwantia/metacat/cmd"
	"github.com/mwantia/metacat/timeaxis"
	"github.com/spf13/pflag"
)

type ShowCommand struct{}

func (*ShowCommand) Name() string {
	return "show"
}

func (*ShowCommand) Description() string {
	return "Print the content of a catalog"
}

func (*ShowCommand) Usage() string {
	return "show <catalog> [--files] [--failures]"
}

func (*ShowCommand) Flags(fs *pflag.FlagSet) {
	addCommonFlags(fs)
	fs.Bool("files", false, "list every file")
	fs.Bool("failures", false, "list the files that could not be read")
}

func (s *ShowCommand) Execute(ctx context.Context, args *cmd.CommandArgs) (int, error) {
	cfg, err := loadConfig(args, nil)
	if err != nil {
		return 2, err
	}
	setCatalog(cfg, args.Arg(0))

	store, err := openCatalog(ctx, cfg)
	if err != nil {
		return 1, err
	}
	defer store.Close(context.WithoutCancel(ctx))

	reader := catalog.NewReader(store)
	summary, err := reader.Summary(ctx)
	if err != nil {
		return 1, err
	}

	out := args.Stdout
	fmt.Fprintf(out, "%d directories, %d files, %d coordinates, %d variables\n",
		summary.Directories, summary.Files, summary.Coordinates, summary.Variables)
	for _, run := range summary.Runs {
		fmt.Fprintf(out, "run %s: %s (%s) started %s, took %s\n",
			run.ID, run.Root, run.FileType, run.Started.Format(time.RFC3339), run.Duration().Round(time.Millisecond))
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	coords, err := reader.Coordinates(ctx)
	if err != nil {
		return 1, err
	}
	fmt.Fprintln(w, "\nCOORD\tNAME\tVALUES\tEXTENT")
	for _, c := range coords {
		extent := "-"
		if e, err := timeaxis.CanonicalExtent(c); err == nil {
			extent = e.String()
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", c.ID, c.Name, c.Count, extent)
	}

	vars, err := reader.Variables(ctx)
	if err != nil {
		return 1, err
	}
	fmt.Fprintln(w, "\nVAR\tNAME\tDIMS\tFILES\tVARYING")
	for _, v := range vars {
		varying := "-"
		if v.HasMultiDim() {
			varying = fmt.Sprint(v.MultiDim)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n", v.ID, v.Name, v.NDims, v.FileCount(), varying)
	}

	if listFiles, _ := args.Flags.GetBool("files"); listFiles {
		files, err := reader.Files(ctx)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(w, "\nFILE\tPATH\tCREATED\tMODIFIED\tLINK")
		for _, f := range files {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", f.ID, f.Path(),
				f.CreatedTime().Format(time.RFC3339), f.ModifiedTime().Format(time.RFC3339), f.Symlink)
		}
	}

	if listFailures, _ := args.Flags.GetBool("failures"); listFailures {
		fmt.Fprintln(w, "\nRUN\tFAILED\tREASON")
		for _, run := range summary.Runs {
			failures, err := reader.Failures(ctx, run.ID)
			if err != nil {
				return 1, err
			}
			for _, f := range failures {
				fmt.Fprintf(w, "%s\t%s\t%s\n", run.ID, f.Path, f.Reason)
			}
		}
	}

	if err := w.Flush(); err != nil {
		return 1, err
	}
	return 0, nil
}

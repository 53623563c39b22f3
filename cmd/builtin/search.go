package builtin

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/mwantia/metacat/catalog"
	"github.com/mwantia/metacat/cmd"
	"github.com/mwantia/metacat/timeaxis"
	"github.com/spf13/pflag"
)

type SearchCommand struct{}

func (*SearchCommand) Name() string {
	return "search"
}

func (*SearchCommand) Description() string {
	return "Find variables covering coordinate ranges"
}

func (*SearchCommand) Usage() string {
	return "search <catalog> [--var name] [--range coord:min:max ...] [--file id ...]"
}

func (*SearchCommand) Flags(fs *pflag.FlagSet) {
	addCommonFlags(fs)
	fs.String("var", "", "variable name")
	fs.StringArray("range", nil, "coordinate range coord:min:max; bounds are numbers or dates, empty bounds are open")
	fs.Int64Slice("file", nil, "only consider these file ids")
}

func (s *SearchCommand) Execute(ctx context.Context, args *cmd.CommandArgs) (int, error) {
	cfg, err := loadConfig(args, nil)
	if err != nil {
		return 2, err
	}
	setCatalog(cfg, args.Arg(0))

	query := catalog.Query{}
	query.Variable, _ = args.Flags.GetString("var")
	query.Files, _ = args.Flags.GetInt64Slice("file")

	ranges, _ := args.Flags.GetStringArray("range")
	for _, r := range ranges {
		filter, err := ParseRange(r)
		if err != nil {
			return 2, fmt.Errorf("%w: %v", cmd.ErrUsage, err)
		}
		query.Ranges = append(query.Ranges, filter)
	}

	store, err := openCatalog(ctx, cfg)
	if err != nil {
		return 1, err
	}
	defer store.Close(context.WithoutCancel(ctx))

	reader := catalog.NewReader(store)
	matches, err := reader.Search(ctx, query)
	if err != nil {
		return 1, err
	}

	verbose, _ := args.Flags.GetBool("verbose")
	w := tabwriter.NewWriter(args.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVARIABLE\tDIMS\tFILES")
	for _, m := range matches {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", m.Variable.ID, m.Variable.Name, m.Variable.NDims, len(m.Files))
		if !verbose {
			continue
		}
		for _, id := range m.Files {
			f, err := reader.File(ctx, id)
			if err != nil {
				return 1, err
			}
			fmt.Fprintf(w, "\t  %s\t\t\n", f.Path())
		}
	}
	if err := w.Flush(); err != nil {
		return 1, err
	}

	fmt.Fprintf(args.Stdout, "%d variables found\n", len(matches))
	return 0, nil
}

// ParseRange reads "coord:min:max". Bounds are numbers or dates; dates may
// contain colons themselves, so the split between the bounds is the first
// one at which both sides parse. An empty bound is open.
func ParseRange(s string) (catalog.RangeFilter, error) {
	name, bounds, ok := strings.Cut(s, ":")
	if !ok || name == "" {
		return catalog.RangeFilter{}, fmt.Errorf("invalid range '%s', expected coord:min:max", s)
	}

	for i := 0; i < len(bounds); i++ {
		if bounds[i] != ':' {
			continue
		}
		lo, err := parseBound(bounds[:i])
		if err != nil {
			continue
		}
		hi, err := parseBound(bounds[i+1:])
		if err != nil {
			continue
		}
		return catalog.RangeFilter{Coordinate: name, Min: lo, Max: hi}, nil
	}
	return catalog.RangeFilter{}, fmt.Errorf("invalid range '%s', expected coord:min:max", s)
}

func parseBound(s string) (*float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	v, err := timeaxis.ParseInstant(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

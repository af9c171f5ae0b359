package tools

import (
	"flag"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

const (
	CommandMerge = "merge"
	CommandIndex = "index"
	CommandInfo  = "info"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

// Flags shared by every subcommand
type InputFlags struct {
	Input        *string `json:"input"`
	Recursive    *bool   `json:"recursive"`
	Config       *string `json:"config"`
	ParseString  *string `json:"parse"`
	SkipLines    *int    `json:"skip"`
	Silent       *bool   `json:"silent"`
	LogTimestamp *bool   `json:"timestamp"`
	Help         *bool   `json:"help"`
}

type FlagsForCommandMerge struct {
	InputFlags
	Output            *string `json:"output"`
	Scale             *string `json:"scale"`
	Offset            *string `json:"offset"`
	Flightlines       *int    `json:"flightlines"`
	ApplyFileSourceID *bool   `json:"apply_file_source_id"`
	KeepTiling        *bool   `json:"keep_tiling"`
	AutoUpgrade       *bool   `json:"auto_upgrade"`
	NoIndex           *bool   `json:"no_index"`
	InsideTile        *string `json:"inside_tile"`
	InsideCircle      *string `json:"inside_circle"`
	InsideRectangle   *string `json:"inside_rectangle"`
	BatchSize         *int    `json:"batch_size"`
}

type FlagsForCommandIndex struct {
	InputFlags
	CellSize *float64 `json:"cell_size"`
	Force    *bool    `json:"force"`
}

type FlagsForCommandInfo struct {
	InputFlags
	JSON *bool `json:"json"`
}

// Parses the flags found before the subcommand, glog flags included, and returns the
// remaining arguments
func ParseFlagsGlobal(args []string) (FlagsGlobal, []string, error) {
	flagCommand := pflag.NewFlagSet("las_merger", pflag.ContinueOnError)
	flagCommand.SetInterspersed(false)
	flagCommand.AddGoFlagSet(flag.CommandLine)

	help := flagCommand.BoolP("help", "h", false, "Displays this help.")
	// "-v" is the glog verbosity
	version := flagCommand.Bool("version", false, "Displays the version of las_merger.")

	if err := flagCommand.Parse(args); err != nil {
		return FlagsGlobal{}, nil, err
	}
	// glog reads its own flags from the standard flag set
	if err := flag.CommandLine.Parse(nil); err != nil {
		return FlagsGlobal{}, nil, err
	}

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}, flagCommand.Args(), nil
}

func defineInputFlags(flagCommand *pflag.FlagSet) InputFlags {
	return InputFlags{
		Input:        flagCommand.StringP("input", "i", "", "Specifies the input point cloud file/folder."),
		Recursive:    flagCommand.BoolP("recursive", "r", false, "Enables recursive lookup for all supported files inside the subfolders."),
		Config:       flagCommand.StringP("config", "c", "", "Configuration file (TOML) providing flag values."),
		ParseString:  flagCommand.String("parse", "xyz", "Column layout of TXT sources, e.g. xyzirn."),
		SkipLines:    flagCommand.Int("skip", 0, "Number of leading lines to ignore in TXT sources."),
		Silent:       flagCommand.BoolP("silent", "s", false, "Use to suppress all the non-error messages."),
		LogTimestamp: flagCommand.BoolP("timestamp", "t", false, "Adds timestamp to log messages."),
		Help:         flagCommand.BoolP("help", "h", false, "Displays this help."),
	}
}

func ParseFlagsForCommandMerge(args []string) (FlagsForCommandMerge, *pflag.FlagSet, error) {
	flagCommand := pflag.NewFlagSet("command-merge", pflag.ContinueOnError)

	flags := FlagsForCommandMerge{
		InputFlags:        defineInputFlags(flagCommand),
		Output:            flagCommand.StringP("output", "o", "", "Specifies the merged LAS file to write."),
		Scale:             flagCommand.String("scale", "", "Scale factors x,y,z of the merged file, zero keeps the merged one."),
		Offset:            flagCommand.String("offset", "", "Offsets x,y,z of the merged file."),
		Flightlines:       flagCommand.Int("flightlines", -1, "Treats every source as a flightline numbered from the given point source ID."),
		ApplyFileSourceID: flagCommand.Bool("apply-file-source-id", false, "Stamps every point with the file source ID of its source."),
		KeepTiling:        flagCommand.Bool("keep-tiling", false, "Keeps the tiling record of the first source."),
		AutoUpgrade:       flagCommand.Bool("auto-upgrade", false, "Upgrades the output to LAS 1.4 when it holds more than 2^32 points."),
		NoIndex:           flagCommand.Bool("no-index", false, "Ignores the sidecar spatial indexes."),
		InsideTile:        flagCommand.String("inside-tile", "", "Keeps the points of the tile llx,lly,size."),
		InsideCircle:      flagCommand.String("inside-circle", "", "Keeps the points of the circle x,y,radius."),
		InsideRectangle:   flagCommand.String("inside-rectangle", "", "Keeps the points of the rectangle minx,miny,maxx,maxy."),
		BatchSize:         flagCommand.Int("batch-size", 4096, "Number of points handed to the writer at once."),
	}

	return flags, flagCommand, flagCommand.Parse(args)
}

func ParseFlagsForCommandIndex(args []string) (FlagsForCommandIndex, *pflag.FlagSet, error) {
	flagCommand := pflag.NewFlagSet("command-index", pflag.ContinueOnError)

	flags := FlagsForCommandIndex{
		InputFlags: defineInputFlags(flagCommand),
		CellSize:   flagCommand.Float64("cell-size", 10, "Side of the index grid cells in world units."),
		Force:      flagCommand.BoolP("force", "f", false, "Rebuilds indexes that already exist."),
	}

	return flags, flagCommand, flagCommand.Parse(args)
}

func ParseFlagsForCommandInfo(args []string) (FlagsForCommandInfo, *pflag.FlagSet, error) {
	flagCommand := pflag.NewFlagSet("command-info", pflag.ContinueOnError)

	flags := FlagsForCommandInfo{
		InputFlags: defineInputFlags(flagCommand),
		JSON:       flagCommand.Bool("json", false, "Prints the merged header as JSON."),
	}

	return flags, flagCommand, flagCommand.Parse(args)
}

// Parses a comma separated list of exactly n numbers
func ParseFloatList(value string, n int) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != n {
		return nil, errors.Errorf("'%s' must hold %d comma separated numbers", value, n)
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "'%s' is no valid number", part)
		}
		out[i] = v
	}
	return out, nil
}
